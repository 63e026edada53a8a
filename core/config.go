package core

import (
	"fmt"
	"strings"
	"time"
)

type InitConfig struct {
	OnLoad           string `koanf:"on_load" mapstructure:"on_load"`
	PKCEMethod       string `koanf:"pkce_method" mapstructure:"pkce_method"`
	CheckLoginIframe bool   `koanf:"check_login_iframe" mapstructure:"check_login_iframe"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	InitTimeout time.Duration `koanf:"init_timeout" mapstructure:"init_timeout"`
	MinValidity time.Duration `koanf:"min_validity" mapstructure:"min_validity"`
	Init        InitConfig    `koanf:"init" mapstructure:"init"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: defaultServiceName,
		InitTimeout: DefaultInitTimeout,
		MinValidity: DefaultMinValidity,
		Init: InitConfig{
			OnLoad:     OnLoadCheckSSO,
			PKCEMethod: PKCEMethodS256,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.InitTimeout <= 0 {
		return fmt.Errorf("core: init_timeout must be positive")
	}
	if c.MinValidity < 0 {
		return fmt.Errorf("core: min_validity must not be negative")
	}
	switch c.Init.OnLoad {
	case OnLoadCheckSSO, OnLoadLoginRequired:
	default:
		return fmt.Errorf("core: init.on_load %q is invalid", c.Init.OnLoad)
	}
	switch c.Init.PKCEMethod {
	case PKCEMethodS256, PKCEMethodNone:
	default:
		return fmt.Errorf("core: init.pkce_method %q is invalid", c.Init.PKCEMethod)
	}
	return nil
}

// InitOptions returns the probe options derived from the init section.
func (c Config) InitOptions() InitOptions {
	return InitOptions{
		OnLoad:           c.Init.OnLoad,
		PKCEMethod:       c.Init.PKCEMethod,
		CheckLoginIframe: c.Init.CheckLoginIframe,
	}
}
