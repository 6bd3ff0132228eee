package config

import (
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/GuelfoNero-beep/D117/internal/logging"
)

const (
	// EnvPrefix scopes the environment variables read by Load.
	EnvPrefix = "PORTAL_"
	// DefaultFile is looked up in the working directory when no path is given.
	DefaultFile = "portal.yaml"
)

// Storage drivers understood by the persistence layer.
const (
	DriverSQLite = "sqlite"
	DriverFiles  = "files"
	DriverMemory = "memory"
)

// Config captures file and environment driven settings for the portal.
type Config struct {
	Log      Log      `koanf:"log"`
	Storage  Storage  `koanf:"storage"`
	Calendar Calendar `koanf:"calendar"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Storage selects where entity collections are persisted.
type Storage struct {
	Driver     string `koanf:"driver"`
	SQLitePath string `koanf:"sqlitePath"`
	Dir        string `koanf:"dir"`
}

// Calendar configures the .ics export sink and identifiers.
type Calendar struct {
	ExportDir string `koanf:"exportDir"`
	ProductID string `koanf:"productId"`
	UIDDomain string `koanf:"uidDomain"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Log: Log{Level: "info", Format: "json"},
		Storage: Storage{
			Driver:     DriverSQLite,
			SQLitePath: "portal.db",
			Dir:        "data",
		},
		Calendar: Calendar{
			ExportDir: "exports",
			ProductID: "-//OrienteD117//App//IT",
			UIDDomain: "oriented117.it",
		},
	}
}

var knownKeys = []string{
	"log.level", "log.format",
	"storage.driver", "storage.sqlitePath", "storage.dir",
	"calendar.exportDir", "calendar.productId", "calendar.uidDomain",
}

// Load reads the optional YAML file at path (DefaultFile when empty) and then
// applies PORTAL_* environment overrides on top of Default.
//
// An explicitly named file must exist; the implicit DefaultFile may be absent.
// Invalid values are reported together in a single error.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", path)
		}
	} else if explicit {
		return Config{}, errors.Wrapf(err, "config file %s", path)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return Config{}, errors.Wrap(err, "load environment overrides")
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: strings.EqualFold,
		},
	}); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// transformEnvKey turns PORTAL_STORAGE_SQLITEPATH into storage.sqlitePath.
// Unknown variables are dropped.
func transformEnvKey(key, value string) (string, any) {
	candidate := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	candidate = strings.Replace(candidate, "_", ".", 1)
	for _, known := range knownKeys {
		if strings.EqualFold(known, candidate) {
			return known, strings.TrimSpace(value)
		}
	}
	return "", nil
}

func (c *Config) validate() error {
	invalid := make([]string, 0, 4)

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		invalid = append(invalid, "log.level")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		invalid = append(invalid, "log.format")
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			invalid = append(invalid, "storage.sqlitePath")
		}
	case DriverFiles:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			invalid = append(invalid, "storage.dir")
		}
	case DriverMemory:
	default:
		invalid = append(invalid, "storage.driver")
	}

	if strings.TrimSpace(c.Calendar.ProductID) == "" {
		invalid = append(invalid, "calendar.productId")
	}
	if strings.TrimSpace(c.Calendar.UIDDomain) == "" {
		invalid = append(invalid, "calendar.uidDomain")
	}

	if len(invalid) > 0 {
		return errors.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return nil
}
