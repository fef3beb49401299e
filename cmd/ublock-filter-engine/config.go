package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultConfigPath is where init writes the config file without --config.
const defaultConfigPath = "./configs/filter_lists.toml"

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("filter_lists")
		viper.SetConfigType("toml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	// Set defaults
	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.retries", 3)
	viper.SetDefault("http.max_size", "64MB")
	viper.SetDefault("cache.dir", "./cache")
	viper.SetDefault("cache.staleness", "24h")
	viper.SetDefault("engine.cosmetic_cache_size", 1024)
	viper.SetDefault("engine.send_do_not_track", false)
	viper.SetDefault("engine.internal_schemes", []string{"app", "blocked"})
	viper.SetDefault("resources.path", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.timestamp", false)
	viper.SetDefault("serve.addr", "127.0.0.1:8080")
	viper.SetDefault("serve.refresh_interval", "6h")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}

	// TextUnmarshallerHookFunc decodes the datasize values.
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&cfg, hook); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
	}
}

const defaultConfig = `# uBlock filter engine configuration

# HTTP client settings for downloading lists
[http]
timeout = "30s"
retries = 3
max_size = "64MB"

# Downloaded lists are kept here and reused while younger than staleness
[cache]
dir = "./cache"
staleness = "24h"

[engine]
cosmetic_cache_size = 1024
send_do_not_track = false
internal_schemes = ["app", "blocked"]

# Scriptlets and redirect resources: a resources.txt file or a directory
[resources]
path = ""

[log]
level = "info"
format = "text"
timestamp = false

[serve]
addr = "127.0.0.1:8080"
refresh_interval = "6h"

# Filter lists, in priority order
# Set enabled = false to skip a list, use path instead of url for local files

[[lists]]
name = "easylist"
url = "https://easylist.to/easylist/easylist.txt"
enabled = true

[[lists]]
name = "easyprivacy"
url = "https://easylist.to/easylist/easyprivacy.txt"
enabled = true

[[lists]]
name = "ublock-filters"
url = "https://ublockorigin.github.io/uAssets/filters/filters.txt"
enabled = true

[[lists]]
name = "ublock-privacy"
url = "https://ublockorigin.github.io/uAssets/filters/privacy.txt"
enabled = true

[[lists]]
name = "ublock-badware"
url = "https://ublockorigin.github.io/uAssets/filters/badware.txt"
enabled = true

[[lists]]
name = "ublock-unbreak"
url = "https://ublockorigin.github.io/uAssets/filters/unbreak.txt"
enabled = true

[[lists]]
name = "peter-lowe"
url = "https://pgl.yoyo.org/adservers/serverlist.php?hostformat=adblockplus&showintro=0&mimetype=plaintext"
enabled = true

[[lists]]
name = "my-filters"
path = "./configs/my_filters.txt"
enabled = false
`

func runInit(cmd *cobra.Command, args []string) error {
	configPath := defaultConfigPath
	if cfgFile != "" {
		configPath = cfgFile
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := renameio.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return err
	}

	fmt.Printf("Created config file: %s\n", configPath)
	return nil
}
