package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from the environment.
type Env struct {
	DataDir   string `env:"CLIMEMU_DATA"   envDefault:"./data"`
	Params    string `env:"CLIMEMU_PARAMS"`
	Addr      string `env:"CLIMEMU_ADDR"   envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL"      envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"     envDefault:"text"`
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
