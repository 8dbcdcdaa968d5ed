package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides: TKEXPORT_SOURCE__PATH sets
// source.path. A double underscore separates levels so single underscores
// can stay inside key names.
const EnvPrefix = "TKEXPORT_"

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "config.yaml"

// flagKeys maps command-line flags to config keys. Flags not listed map to
// their own name with dashes turned into underscores.
var flagKeys = map[string]string{
	"source":         "source.path",
	"source-kind":    "source.kind",
	"source-dsn":     "source.dsn",
	"chunk-size":     "source.chunk_size",
	"start-date":     "export.start_date",
	"end-date":       "export.end_date",
	"date-field":     "export.date_column",
	"cascade":        "export.cascade",
	"filter-project": "export.cascade",
	"output-dir":     "output.dir",
	"format":         "output.format",
	"store":          "store.kind",
	"store-dsn":      "store.dsn",
	"metrics":        "metrics.backend",
	"database":       "sqlite_database_path",
}

// Load builds a Config. path names the YAML file; empty looks for
// DefaultFile and skips it when missing. flags may be nil; only flags the
// user changed override lower layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	used := path
	if used == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			used = DefaultFile
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				yamlDateHook,
			),
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = used
	return &cfg, nil
}

// yamlDateHook turns YAML timestamps (an unquoted 2024-01-31) back into
// text for string fields such as export.start_date.
func yamlDateHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	t, ok := data.(time.Time)
	if !ok || to.Kind() != reflect.String {
		return data, nil
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02"), nil
	}
	return t.Format(time.RFC3339), nil
}
