package models

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Config represents the main configuration
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Resources ResourcesConfig `mapstructure:"resources"`
	Log       LogConfig       `mapstructure:"log"`
	Serve     ServeConfig     `mapstructure:"serve"`
	Lists     []FilterList    `mapstructure:"lists"`
}

// HTTPConfig contains HTTP client settings
type HTTPConfig struct {
	Timeout time.Duration     `mapstructure:"timeout"`
	Retries int               `mapstructure:"retries"`
	MaxSize datasize.ByteSize `mapstructure:"max_size"`
}

// CacheConfig contains settings of the downloaded lists cache
type CacheConfig struct {
	Dir       string        `mapstructure:"dir"`
	Staleness time.Duration `mapstructure:"staleness"`
}

// EngineConfig contains matching engine settings
type EngineConfig struct {
	CosmeticCacheSize int      `mapstructure:"cosmetic_cache_size"`
	SendDoNotTrack    bool     `mapstructure:"send_do_not_track"`
	InternalSchemes   []string `mapstructure:"internal_schemes"`
}

// ResourcesConfig points to the scriptlet and redirect resources
type ResourcesConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Timestamp bool   `mapstructure:"timestamp"`
}

// ServeConfig contains settings of the decision HTTP service
type ServeConfig struct {
	Addr            string        `mapstructure:"addr"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// FilterList represents a single filter list configuration.  Exactly one of
// URL and Path is expected to be set.
type FilterList struct {
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

// IsLocal returns true if the list is read from the local filesystem
func (l FilterList) IsLocal() bool {
	return l.Path != ""
}

// EnabledLists returns only enabled filter lists
func (c *Config) EnabledLists() []FilterList {
	var enabled []FilterList
	for _, l := range c.Lists {
		if l.Enabled {
			enabled = append(enabled, l)
		}
	}
	return enabled
}
