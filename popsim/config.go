package popsim

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/agentmarket/popsim/internal/domain/archetypes"
	"github.com/agentmarket/popsim/popsim/config"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// LoadConfig reads the TOML config at path and applies environment overrides.
// A .env file next to the binary is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyEnv()

	if len(cfg.Archetypes) == 0 {
		cfg.Archetypes = archetypes.DefaultTable().Archetypes
	}
	if len(cfg.Occupations) == 0 {
		cfg.Occupations = archetypes.DefaultTable().Occupations
	}
	return cfg, nil
}

// DefaultConfig returns the settings used for any key the config file leaves out.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "text",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "popsim",
			PoolSize: 20,
		},
		Chain: ChainConfig{
			RPCURL:         "http://localhost:8545",
			GasLimit:       21000,
			ConfirmTimeout: Duration{90 * time.Second},
			PollInterval:   Duration{2 * time.Second},
		},
		Population: PopulationConfig{
			DefaultCount:    100,
			BatchSize:       25,
			MaxConcurrent:   10,
			InterBatchDelay: Duration{2 * time.Second},
		},
		Pool: PoolConfig{
			ID:              config.DefaultPoolID,
			TokenA:          "ETH",
			TokenB:          "SIM",
			InitialReserveA: decimal.NewFromInt(1000),
			InitialReserveB: decimal.NewFromInt(1000000),
			FeeBps:          30,
		},
		Web: WebConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			RateLimit: 120,
		},
	}
}

type Config struct {
	Log         LogConfig               `toml:"log"`
	DB          DBConfig                `toml:"db"`
	Chain       ChainConfig             `toml:"chain"`
	Population  PopulationConfig        `toml:"population"`
	Pool        PoolConfig              `toml:"pool"`
	Activity    ActivityConfig          `toml:"activity"`
	Reports     ReportsConfig           `toml:"reports"`
	Web         WebConfig               `toml:"web"`
	Archetypes  []archetypes.Archetype  `toml:"archetypes"`
	Occupations []archetypes.Occupation `toml:"occupations"`
}

// Table returns the configured archetype and occupation table.
func (c *Config) Table() archetypes.Table {
	return archetypes.Table{
		Archetypes:  c.Archetypes,
		Occupations: c.Occupations,
	}
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type ChainConfig struct {
	RPCURL string `toml:"rpc_url"`
	// FunderKey is normally supplied through FUNDER_PRIVATE_KEY rather than the file.
	FunderKey      string   `toml:"funder_key"`
	GasLimit       uint64   `toml:"gas_limit"`
	ConfirmTimeout Duration `toml:"confirm_timeout"`
	PollInterval   Duration `toml:"poll_interval"`
}

type PopulationConfig struct {
	DefaultCount    int      `toml:"default_count"`
	BatchSize       int      `toml:"batch_size"`
	MaxConcurrent   int      `toml:"max_concurrent"`
	InterBatchDelay Duration `toml:"inter_batch_delay"`
	// SlotsPerSecond paces slot starts inside a batch. Zero disables pacing.
	SlotsPerSecond float64 `toml:"slots_per_second"`
}

type PoolConfig struct {
	ID              string          `toml:"id"`
	TokenA          string          `toml:"token_a"`
	TokenB          string          `toml:"token_b"`
	InitialReserveA decimal.Decimal `toml:"initial_reserve_a"`
	InitialReserveB decimal.Decimal `toml:"initial_reserve_b"`
	FeeBps          int             `toml:"fee_bps"`
}

type ActivityConfig struct {
	KafkaBrokers    []string `toml:"kafka_brokers"`
	KafkaTopic      string   `toml:"kafka_topic"`
	MongoURI        string   `toml:"mongo_uri"`
	MongoDatabase   string   `toml:"mongo_database"`
	MongoCollection string   `toml:"mongo_collection"`
}

type WebConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	AllowOrigins string `toml:"allow_origins"`
	// RateLimit is requests per minute per client. Zero disables limiting.
	RateLimit int `toml:"rate_limit"`
}

type ReportsConfig struct {
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Prefix   string `toml:"prefix"`
}

// Duration decodes TOML strings such as "2s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("FUNDER_PRIVATE_KEY"); ok && v != "" {
		c.Chain.FunderKey = v
	}
	if v, ok := os.LookupEnv("RPC_URL"); ok && v != "" {
		c.Chain.RPCURL = v
	}
	if v, ok := os.LookupEnv("DB_PASSWORD"); ok {
		c.DB.Password = v
	}
	if v, ok := os.LookupEnv("DB_HOST"); ok && v != "" {
		c.DB.Host = v
	}
	if v, ok := os.LookupEnv("DB_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.DB.Port = port
		}
	}
	if v, ok := os.LookupEnv("REPORTS_SECRET"); ok && v != "" {
		c.Reports.Secret = v
	}
}
