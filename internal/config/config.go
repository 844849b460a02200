package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "yourbooks.yaml"

// Config represents the top-level yourbooks.yaml configuration.
type Config struct {
	Organization   string               `yaml:"organization"`
	Database       DatabaseConfig       `yaml:"database"`
	Ledger         LedgerConfig         `yaml:"ledger"`
	Journal        JournalConfig        `yaml:"journal"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Events         EventsConfig         `yaml:"events"`
	HTTP           HTTPConfig           `yaml:"http"`
	Log            LogConfig            `yaml:"log"`
}

// DatabaseConfig selects the store driver.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
}

// LedgerConfig holds posting defaults.
type LedgerConfig struct {
	BaseCurrency string `yaml:"base_currency"`
}

// JournalConfig bounds journal batch operations.
type JournalConfig struct {
	MaxBulk int `yaml:"max_bulk"`
}

// ReconciliationConfig controls bank matching.
type ReconciliationConfig struct {
	AutoApplyThreshold int `yaml:"auto_apply_threshold"`
	MaxBatch           int `yaml:"max_batch"`
	DateWindowDays     int `yaml:"date_window_days"`
}

// EventsConfig selects where ledger events go. No brokers means events are
// only logged. LogFile, when set, also appends each event to a CSV file.
type EventsConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers,omitempty"`
	Topic        string   `yaml:"topic"`
	LogFile      string   `yaml:"log_file,omitempty"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load reads a yourbooks.yaml file from disk and applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(organization string) *Config {
	return &Config{
		Organization: organization,
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "data/yourbooks.db",
		},
		Ledger: LedgerConfig{
			BaseCurrency: "UGX",
		},
		Journal: JournalConfig{
			MaxBulk: 100,
		},
		Reconciliation: ReconciliationConfig{
			AutoApplyThreshold: 85,
			MaxBatch:           200,
			DateWindowDays:     60,
		},
		Events: EventsConfig{
			Topic:   "ledger-events",
			LogFile: "logs/ledger-events.csv",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadDotEnv loads variables from a .env file into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from YOURBOOKS_* environment variables.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv("YOURBOOKS_ORGANIZATION"); ok {
		c.Organization = v
	}
	if v, ok := os.LookupEnv("YOURBOOKS_DB_DRIVER"); ok {
		c.Database.Driver = v
	}
	if v, ok := os.LookupEnv("YOURBOOKS_DB_DSN"); ok {
		c.Database.DSN = v
	}
	if v, ok := os.LookupEnv("YOURBOOKS_KAFKA_BROKERS"); ok {
		c.Events.KafkaBrokers = splitList(v)
	}
	if v, ok := os.LookupEnv("YOURBOOKS_HTTP_ADDR"); ok {
		c.HTTP.Addr = v
	}
	if v, ok := os.LookupEnv("YOURBOOKS_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every missing or invalid required value.
func (c *Config) Validate() error {
	var problems []error
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		problems = append(problems, fmt.Errorf("database.driver %q must be sqlite3 or postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		problems = append(problems, errors.New("database.dsn is required"))
	}
	if len(c.Ledger.BaseCurrency) != 3 {
		problems = append(problems, fmt.Errorf("ledger.base_currency %q must be a 3-letter code", c.Ledger.BaseCurrency))
	}
	if c.Journal.MaxBulk <= 0 {
		problems = append(problems, errors.New("journal.max_bulk must be positive"))
	}
	if t := c.Reconciliation.AutoApplyThreshold; t < 1 || t > 100 {
		problems = append(problems, fmt.Errorf("reconciliation.auto_apply_threshold %d must be between 1 and 100", t))
	}
	if c.Reconciliation.MaxBatch <= 0 {
		problems = append(problems, errors.New("reconciliation.max_batch must be positive"))
	}
	if len(c.Events.KafkaBrokers) > 0 && c.Events.Topic == "" {
		problems = append(problems, errors.New("events.topic is required with kafka_brokers"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(problems...)
}
