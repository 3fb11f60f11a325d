package main

import "github.com/mvp-joe/gpx-geo-filter/internal/cli"

func main() {
	cli.Execute()
}
