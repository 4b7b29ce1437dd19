// Package config collects the builder's settings from the environment and an
// optional config.toml next to the binary. The defaults reproduce the fixed
// directory layout of the runtime build images.
package config

import (
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config describes all configuration options
type Config struct {
	Stack string `env:"STACK" usage:"Stack image the build runs on (heroku-20 or heroku-22)"`

	InstallDir string `default:"/app/.heroku/python" usage:"Install prefix; becomes the root of the packaged archive"`
	SrcDir     string `default:"/tmp/src" usage:"Scratch directory for the unpacked CPython sources"`
	UploadDir  string `default:"/tmp/upload" usage:"Root of the stack-scoped upload directories"`

	Log struct {
		Level string `default:"info"`
		JSON  bool   `default:"false" usage:"Output JSONND instead of pretty console messages"`
	}

	Fetch struct {
		URL            string        `default:"https://www.python.org/ftp/python/{VERSION}/Python-{VERSION}.tgz" usage:"Source archive URL; {VERSION} is replaced with the requested version"`
		ConnectTimeout time.Duration `default:"10s" usage:"Timeout for establishing the download connection"`
		Timeout        time.Duration `default:"10m" usage:"Overall timeout for a single download attempt"`
		Retries        int           `default:"3" usage:"Retries after a failed download attempt"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object
func Loader() (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		// The version argument and all flags belong to cobra.
		SkipFlags: true,
		Files:     []string{"config.toml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if !strings.Contains(cfg.Fetch.URL, "{VERSION}") {
		return eris.Errorf(`Invalid value for fetch.url: %s (must contain a {VERSION} placeholder)`, cfg.Fetch.URL)
	}

	if cfg.Fetch.Retries < 0 {
		return eris.Errorf(`Invalid value for fetch.retries: %d`, cfg.Fetch.Retries)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
