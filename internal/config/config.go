package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	// ModeLastValue reuses the final short/long averages of the whole series
	// on every simulated day.
	ModeLastValue Mode = "last_value"
	// ModeTrailing recomputes both averages from the closes seen so far.
	ModeTrailing Mode = "trailing"
)

type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Engine holds the simulation and search parameters.
type Engine struct {
	UpperLimit    Range   `yaml:"upper_limit"`
	LowerLimit    Range   `yaml:"lower_limit"`
	Step          float64 `yaml:"step" validate:"gt=0"`
	MinDataPoints int     `yaml:"min_data_points" validate:"gt=0"`
	ShortWindow   int     `yaml:"short_window" validate:"gt=0"`
	LongWindow    int     `yaml:"long_window" validate:"gt=0"`
	LotSize       int     `yaml:"lot_size" validate:"gt=0"`
	Mode          Mode    `yaml:"mode" validate:"oneof=last_value trailing"`
	Workers       int     `yaml:"workers" validate:"gte=0"`
}

type Server struct {
	Addr string `yaml:"addr" validate:"required"`
}

type Database struct {
	Path string `yaml:"path" validate:"required"`
}

type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Feed      string `yaml:"feed" validate:"omitempty,oneof=iex sip"`
	BaseURL   string `yaml:"base_url"`
}

type Influx struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

type Config struct {
	Server        Server   `yaml:"server"`
	Database      Database `yaml:"database"`
	Engine        Engine   `yaml:"engine"`
	Alpaca        Alpaca   `yaml:"alpaca"`
	Influx        Influx   `yaml:"influx"`
	LogLevel      string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	DecisionsPath string   `yaml:"decisions_path"`
}

// DefaultEngine returns the search space the tool has always used: upper
// 1.01..1.20, lower 0.90..0.99, step 0.01, 5/10 day averages, 100 share lots.
func DefaultEngine() Engine {
	return Engine{
		UpperLimit:    Range{Min: 1.01, Max: 1.20},
		LowerLimit:    Range{Min: 0.90, Max: 0.99},
		Step:          0.01,
		MinDataPoints: 30,
		ShortWindow:   5,
		LongWindow:    10,
		LotSize:       100,
		Mode:          ModeLastValue,
	}
}

func Default() Config {
	return Config{
		Server:   Server{Addr: ":8080"},
		Database: Database{Path: "stock_data.db"},
		Engine:   DefaultEngine(),
		Alpaca:   Alpaca{Feed: "iex"},
		Influx: Influx{
			URL:    "http://localhost:8086",
			Org:    "tradeopt",
			Bucket: "financial-data",
		},
		LogLevel: "info",
	}
}

// RegisterFlags adds every overridable setting to fs. Flag defaults mirror
// Default(); only flags set explicitly take precedence during Load.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to YAML config file")
	fs.String("addr", d.Server.Addr, "HTTP listen address")
	fs.String("db", d.Database.Path, "SQLite database path")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.String("decisions-path", "", "append validation decisions as NDJSON to this file")
	fs.String("mode", string(d.Engine.Mode), "simulation mode: last_value or trailing")
	fs.Int("workers", d.Engine.Workers, "parallel grid workers (0 = GOMAXPROCS)")
	fs.Int("short-window", d.Engine.ShortWindow, "short moving average window")
	fs.Int("long-window", d.Engine.LongWindow, "long moving average window")
	fs.Int("lot-size", d.Engine.LotSize, "trading lot size")
	fs.Int("min-data-points", d.Engine.MinDataPoints, "most recent rows loaded per ticker")
	fs.Float64("upper-min", d.Engine.UpperLimit.Min, "lowest upper limit searched")
	fs.Float64("upper-max", d.Engine.UpperLimit.Max, "highest upper limit searched")
	fs.Float64("lower-min", d.Engine.LowerLimit.Min, "lowest lower limit searched")
	fs.Float64("lower-max", d.Engine.LowerLimit.Max, "highest lower limit searched")
	fs.Float64("step", d.Engine.Step, "grid step")
}

// Load resolves configuration with precedence flags > environment > file >
// defaults. A .env file in the working directory is read first and never
// overrides variables that are already set.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg := Default()
	loadDotEnvIfPresent(".env")

	path, _ := fs.GetString("config")
	if path == "" {
		path = os.Getenv("TRADEOPT_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := applyFlags(fs, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("TRADEOPT_ADDR", &cfg.Server.Addr)
	setString("TRADEOPT_DB_PATH", &cfg.Database.Path)
	setString("TRADEOPT_LOG_LEVEL", &cfg.LogLevel)
	setString("TRADEOPT_DECISIONS_PATH", &cfg.DecisionsPath)
	setString("APCA_API_KEY_ID", &cfg.Alpaca.APIKey)
	setString("APCA_API_SECRET_KEY", &cfg.Alpaca.APISecret)
	setString("APCA_DATA_FEED", &cfg.Alpaca.Feed)
	setString("APCA_API_DATA_URL", &cfg.Alpaca.BaseURL)
	setString("INFLUXDB_URL", &cfg.Influx.URL)
	setString("INFLUXDB_TOKEN", &cfg.Influx.Token)
	setString("INFLUXDB_ORG", &cfg.Influx.Org)
	setString("INFLUXDB_BUCKET", &cfg.Influx.Bucket)

	var mode string
	setString("TRADEOPT_MODE", &mode)
	if mode != "" {
		cfg.Engine.Mode = Mode(mode)
	}
	if v, ok := os.LookupEnv("TRADEOPT_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRADEOPT_WORKERS: %w", err)
		}
		cfg.Engine.Workers = n
	}
	return nil
}

func applyFlags(fs *pflag.FlagSet, cfg *Config) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	fs.Visit(func(f *pflag.Flag) {
		var err error
		switch f.Name {
		case "addr":
			cfg.Server.Addr, err = fs.GetString(f.Name)
		case "db":
			cfg.Database.Path, err = fs.GetString(f.Name)
		case "log-level":
			cfg.LogLevel, err = fs.GetString(f.Name)
		case "decisions-path":
			cfg.DecisionsPath, err = fs.GetString(f.Name)
		case "mode":
			var mode string
			mode, err = fs.GetString(f.Name)
			cfg.Engine.Mode = Mode(mode)
		case "workers":
			cfg.Engine.Workers, err = fs.GetInt(f.Name)
		case "short-window":
			cfg.Engine.ShortWindow, err = fs.GetInt(f.Name)
		case "long-window":
			cfg.Engine.LongWindow, err = fs.GetInt(f.Name)
		case "lot-size":
			cfg.Engine.LotSize, err = fs.GetInt(f.Name)
		case "min-data-points":
			cfg.Engine.MinDataPoints, err = fs.GetInt(f.Name)
		case "upper-min":
			cfg.Engine.UpperLimit.Min, err = fs.GetFloat64(f.Name)
		case "upper-max":
			cfg.Engine.UpperLimit.Max, err = fs.GetFloat64(f.Name)
		case "lower-min":
			cfg.Engine.LowerLimit.Min, err = fs.GetFloat64(f.Name)
		case "lower-max":
			cfg.Engine.LowerLimit.Max, err = fs.GetFloat64(f.Name)
		case "step":
			cfg.Engine.Step, err = fs.GetFloat64(f.Name)
		}
		keep(err)
	})
	return firstErr
}

var structValidator = validator.New()

func validate(cfg Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return cfg.Engine.Validate()
}

// Validate checks the cross-field rules of the search space.
func (e Engine) Validate() error {
	if err := structValidator.Struct(e); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	if e.UpperLimit.Min <= 1 {
		return errors.New("upper-min must be > 1")
	}
	if e.UpperLimit.Max < e.UpperLimit.Min {
		return errors.New("upper-max must be >= upper-min")
	}
	if e.LowerLimit.Max >= 1 {
		return errors.New("lower-max must be < 1")
	}
	if e.LowerLimit.Min <= 0 {
		return errors.New("lower-min must be > 0")
	}
	if e.LowerLimit.Max < e.LowerLimit.Min {
		return errors.New("lower-max must be >= lower-min")
	}
	if e.LongWindow < e.ShortWindow {
		return errors.New("long-window must be >= short-window")
	}
	return nil
}
