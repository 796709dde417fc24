package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

// Settings are the daemon's own bootstrap options, as opposed to the
// enforced document: where that document lives and how chatty the logs are.
type Settings struct {
	ConfigPath string `koanf:"configpath"`
	LogLevel   string `koanf:"loglevel"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "yourtime", "config.toml")
}

// LoadSettings layers defaults, an optional YAML file and YOURTIME_-prefixed
// environment variables.
func LoadSettings(path string) (Settings, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Settings{
		ConfigPath: defaultConfigPath(),
		LogLevel:   "info",
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading settings defaults: %v", err)
		return Settings{}, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if os.IsNotExist(err) {
				log.Infof("Settings file not found at %s, using defaults and environment variables", path)
			} else {
				log.Errorf("error loading settings from YAML: %v", err)
				return Settings{}, err
			}
		} else {
			log.Infof("Loaded settings from file: %s", path)
		}
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "YOURTIME_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "YOURTIME_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading settings from envs: %v", err)
		return Settings{}, err
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
