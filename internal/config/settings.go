package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EndpointSettings toggles the five canonical CRUD endpoints of one module.
// A nil pointer means the endpoint keeps its default (enabled).
type EndpointSettings struct {
	Create *bool `mapstructure:"create"`
	List   *bool `mapstructure:"list"`
	Get    *bool `mapstructure:"get"`
	Update *bool `mapstructure:"update"`
	Delete *bool `mapstructure:"delete"`
}

// Settings is the hot-reloadable part of the configuration.
type Settings struct {
	Endpoints map[string]EndpointSettings `mapstructure:"endpoints"`
}

// SettingsHolder exposes the current Settings and swaps them atomically
// when the settings file changes on disk.
type SettingsHolder struct {
	current atomic.Value // holds Settings
}

func NewSettingsHolder() (*SettingsHolder, error) {
	v := viper.New()

	v.SetConfigName("settings")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/shopfloor/config")
	v.AddConfigPath("/etc/shopfloor")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHOPFLOOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &SettingsHolder{}
	holder.current.Store(Settings{})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no settings file: every endpoint stays enabled
		return holder, nil
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}
	holder.current.Store(settings)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var next Settings
		if err := v.Unmarshal(&next); err != nil {
			log.Printf("settings reload failed: %v", err)
			return
		}
		holder.current.Store(next)
	})

	return holder, nil
}

func (h *SettingsHolder) Current() Settings {
	return h.current.Load().(Settings)
}

// EndpointEnabled reports whether the named endpoint of a module is enabled.
// Unknown modules and unset flags default to enabled.
func (h *SettingsHolder) EndpointEnabled(module, endpoint string) bool {
	if h == nil {
		return true
	}
	settings := h.Current()
	ep, ok := settings.Endpoints[module]
	if !ok {
		return true
	}

	var flag *bool
	switch endpoint {
	case "create":
		flag = ep.Create
	case "list":
		flag = ep.List
	case "get":
		flag = ep.Get
	case "update":
		flag = ep.Update
	case "delete":
		flag = ep.Delete
	}
	if flag == nil {
		return true
	}
	return *flag
}
