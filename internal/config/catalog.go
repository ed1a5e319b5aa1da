package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CatalogConfig is the filter vocabulary and paging policy served to the
// dashboard. It lives in catalog.yml and may change without a restart.
type CatalogConfig struct {
	AvailabilityDays []string `mapstructure:"availabilityDays"`
	DefaultPageSize  int      `mapstructure:"defaultPageSize"`
	MaxPageSize      int      `mapstructure:"maxPageSize"`
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		AvailabilityDays: []string{
			"monday", "tuesday", "wednesday", "thursday",
			"friday", "saturday", "sunday", "other",
		},
		DefaultPageSize: 25,
		MaxPageSize:     100,
	}
}

// KnownAvailability reports whether the value is part of the day vocabulary.
func (c CatalogConfig) KnownAvailability(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, day := range c.AvailabilityDays {
		if value == day {
			return true
		}
	}
	return false
}

type CatalogHolder struct {
	current atomic.Value // holds CatalogConfig
}

// NewCatalogHolder loads catalog.yml and watches it for changes.
func NewCatalogHolder() (*CatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("catalog")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/orgmesh/config")
	v.AddConfigPath("/etc/orgmesh")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ORGMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		defaults := DefaultCatalogConfig()
		v.SetDefault("catalog.availabilityDays", defaults.AvailabilityDays)
		v.SetDefault("catalog.defaultPageSize", defaults.DefaultPageSize)
		v.SetDefault("catalog.maxPageSize", defaults.MaxPageSize)
	}

	var cfg CatalogConfig
	if err := v.UnmarshalKey("catalog", &cfg); err != nil {
		return nil, err
	}
	if err := validateCatalogConfig(cfg); err != nil {
		return nil, err
	}

	holder := &CatalogHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CatalogConfig
		if err := v.UnmarshalKey("catalog", &updated); err != nil {
			log.Printf("[catalog-config] reload failed: %v", err)
			return
		}
		if err := validateCatalogConfig(updated); err != nil {
			log.Printf("[catalog-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[catalog-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *CatalogHolder) Get() CatalogConfig {
	return h.current.Load().(CatalogConfig)
}

func validateCatalogConfig(cfg CatalogConfig) error {
	if len(cfg.AvailabilityDays) == 0 {
		return errors.New("catalog.availabilityDays cannot be empty")
	}
	if cfg.DefaultPageSize <= 0 || cfg.MaxPageSize < cfg.DefaultPageSize {
		return errors.New("catalog page sizes are inconsistent")
	}
	return nil
}
