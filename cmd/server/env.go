package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// serverEnv is read before flags; flags given on the command line win.
type serverEnv struct {
	Addr        string `env:"LW_ADDR" envDefault:":8080"`
	DataDir     string `env:"LW_DATA_DIR" envDefault:"./data"`
	ConfigDir   string `env:"LW_CONFIG_DIR" envDefault:"./configs"`
	LogFile     string `env:"LW_LOG_FILE"`
	LogLevel    string `env:"LW_LOG_LEVEL" envDefault:"info"`
	DisableDB   bool   `env:"LW_DISABLE_DB"`
	EnableAdmin bool   `env:"LW_ENABLE_ADMIN_HTTP" envDefault:"true"`
}

func parseEnv() (serverEnv, error) {
	var e serverEnv
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
