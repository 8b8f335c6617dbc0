package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "CALLSIGHT_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "CALLSIGHT_AUTH_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.AuthToken = v.(string) },
	},
	{
		env: "CALLSIGHT_PROVIDER", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Provider.Name = v.(string) },
	},
	{
		env: "CALLSIGHT_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Provider.Model = v.(string) },
	},
	{
		env: "CALLSIGHT_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Provider.APIKey = v.(string) },
	},
	{
		env: "CALLSIGHT_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Provider.BaseURL = v.(string) },
	},
	{
		env: "CALLSIGHT_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
	{
		env: "CALLSIGHT_RETENTION_DAYS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Storage.RetentionDays = v.(int) },
	},
	{
		env: "CALLSIGHT_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config) error {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			i, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("parsing %s=%q: %w", s.env, raw, err)
			}
			s.apply(cfg, i)
		}
	}
	return nil
}
