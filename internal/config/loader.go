package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigName is the base name of the configuration file searched in the root directory.
const ConfigName = ".gpx-geo-filter"

// EnvPrefix prefixes environment variable overrides, e.g. GPXFILTER_FILTER_THREADS.
const EnvPrefix = "GPXFILTER"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file, environment variables and flags.
	// Priority: defaults → config file → environment variables → flags (flags win).
	// Flags that were not set on the command line are ignored. flags may be nil.
	Load(flags *pflag.FlagSet) (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a loader that searches rootDir for .gpx-geo-filter.yml, or
// reads configFile when it is not empty.
func NewLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"first-lat":  "area.first_lat",
	"first-lon":  "area.first_lon",
	"second-lat": "area.second_lat",
	"second-lon": "area.second_lon",
	"distance":   "filter.distance_km",
	"threads":    "filter.threads",
	"strict":     "filter.fail_fast",
	"folder":     "paths.source",
	"include":    "paths.include",
	"ignore":     "paths.ignore",
	"copy-to":    "output.copy_to",
	"report":     "output.report",
	"debounce":   "watch.debounce",
	"cache-size": "watch.cache_size",
}

var envKeys = []string{
	"area.first_lat",
	"area.first_lon",
	"area.second_lat",
	"area.second_lon",
	"filter.distance_km",
	"filter.threads",
	"filter.fail_fast",
	"paths.source",
	"paths.include",
	"paths.ignore",
	"output.copy_to",
	"output.report",
	"watch.debounce",
	"watch.cache_size",
}

func (l *loader) Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(l.rootDir)
	}

	// Replace . with _ in env var names (e.g., GPXFILTER_AREA_FIRST_LAT)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	setDefaults(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is only acceptable when searching for the default name.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// bindFlags binds the flags set on the command line. Unset flags are skipped so
// their zero defaults never hide file or environment values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("filter.distance_km", defaults.Filter.DistanceKm)
	v.SetDefault("filter.threads", defaults.Filter.Threads)
	v.SetDefault("filter.fail_fast", defaults.Filter.FailFast)

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("output.copy_to", defaults.Output.CopyTo)
	v.SetDefault("output.report", defaults.Output.Report)

	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.cache_size", defaults.Watch.CacheSize)
}
