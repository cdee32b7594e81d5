package config

import (
	"fmt"
	"strings"

	"basestation-mapper/internal/apperr"
	"basestation-mapper/internal/models"

	"github.com/go-viper/encoding/ini"
	"github.com/spf13/viper"
)

// Config is the parsed configuration file.
type Config struct {
	v *viper.Viper

	LogFile        string
	DatabaseSource string
	ServerAddress  string
	WebDir         string
	OutputFile     string
}

// LoadConfig reads the INI file at path. Caster sections are resolved
// lazily through Caster.
func LoadConfig(path string) (*Config, error) {
	registry := viper.NewCodecRegistry()
	if err := registry.RegisterCodec("ini", ini.Codec{}); err != nil {
		return nil, fmt.Errorf("config: failed to register ini codec: %w", err)
	}

	v := viper.NewWithOptions(viper.WithCodecRegistry(registry))
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.web", "./web")
	v.SetDefault("server.output", "./web/basestations.json")

	if err := v.ReadInConfig(); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "config", err, "cannot read %s", path)
	}

	return &Config{
		v:              v,
		LogFile:        v.GetString("log.file"),
		DatabaseSource: v.GetString("database.source"),
		ServerAddress:  v.GetString("server.address"),
		WebDir:         v.GetString("server.web"),
		OutputFile:     v.GetString("server.output"),
	}, nil
}

// Caster returns the connection parameters of the named caster section.
// Only cachefile is mandatory here; the fetch path checks the rest.
func (c *Config) Caster(name string) (models.CasterConfig, error) {
	section := strings.ToLower(name)
	if !c.v.IsSet(section + ".cachefile") {
		return models.CasterConfig{}, apperr.New(apperr.Precondition, "config", "no cachefile configured for caster %s", name)
	}

	return models.CasterConfig{
		Name:      name,
		Host:      c.v.GetString(section + ".caster"),
		Port:      c.v.GetInt(section + ".port"),
		Username:  c.v.GetString(section + ".username"),
		Password:  c.v.GetString(section + ".password"),
		CacheFile: c.v.GetString(section + ".cachefile"),
	}, nil
}
