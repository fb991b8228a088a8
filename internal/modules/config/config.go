package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	envPrefix         = "BOT"
	defaultConfigFile = "configs/values_local.yaml"
)

// Config ...
type Config struct {
	Assets            []string `mapstructure:"assets" validate:"min=1,unique,dive,required"`
	TimeframeMinutes  int      `mapstructure:"timeframe_minutes" validate:"gte=1"`
	ExpirationMinutes int      `mapstructure:"expiration_minutes" validate:"gte=1"`

	// Деньги
	Stake          float64 `mapstructure:"stake" validate:"gt=0"`
	InitialBalance float64 `mapstructure:"initial_balance" validate:"gte=0"`
	Payout         float64 `mapstructure:"payout" validate:"gt=0"`
	SimWinRate     float64 `mapstructure:"sim_win_rate" validate:"gte=0,lte=1"`
	SimSeed        int64   `mapstructure:"sim_seed"`

	Strategy StrategyConfig `mapstructure:"strategy"`

	// Окно истории на актив; должно покрывать самый длинный индикатор
	HistoryCapacity int `mapstructure:"history_capacity" validate:"gte=3"`
	FetchCount      int `mapstructure:"fetch_count" validate:"gte=1"`

	PollInterval      time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	FeedTimeout       time.Duration `mapstructure:"feed_timeout" validate:"gt=0"`
	ExecutionTimeout  time.Duration `mapstructure:"execution_timeout" validate:"gt=0"`
	ReportInterval    time.Duration `mapstructure:"report_interval" validate:"gt=0"`
	MaxParallelAssets int           `mapstructure:"max_parallel_assets" validate:"gte=1"`
	HistoryLimit      int           `mapstructure:"history_limit" validate:"gte=1"`

	Feed     FeedConfig     `mapstructure:"feed"`
	Auth     AuthConfig     `mapstructure:"auth"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type StrategyConfig struct {
	FastPeriod int `mapstructure:"fast_period" validate:"gte=1"`
	SlowPeriod int `mapstructure:"slow_period" validate:"gte=1"`
	RSIPeriod  int `mapstructure:"rsi_period" validate:"gte=1"`
}

type FeedConfig struct {
	Kind string `mapstructure:"kind" validate:"oneof=simulated stream"`
	URL  string `mapstructure:"url" validate:"required_if=Kind stream"`
}

type AuthConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("assets", []string{"EURUSD-OTC", "GBPUSD-OTC", "USDJPY-OTC"})
	v.SetDefault("timeframe_minutes", 1)
	v.SetDefault("expiration_minutes", 1)
	v.SetDefault("stake", 6)
	v.SetDefault("initial_balance", 10000)
	v.SetDefault("payout", 0.8)
	v.SetDefault("sim_win_rate", 0.6)
	v.SetDefault("sim_seed", 0)

	v.SetDefault("strategy.fast_period", 5)
	v.SetDefault("strategy.slow_period", 20)
	v.SetDefault("strategy.rsi_period", 7)

	v.SetDefault("history_capacity", 100)
	v.SetDefault("fetch_count", 30)

	v.SetDefault("poll_interval", "10s")
	v.SetDefault("feed_timeout", "5s")
	v.SetDefault("execution_timeout", "5s")
	v.SetDefault("report_interval", "30s")
	v.SetDefault("max_parallel_assets", 1)
	v.SetDefault("history_limit", 500)

	v.SetDefault("feed.kind", "simulated")
	v.SetDefault("feed.url", "")
	v.SetDefault("auth.email", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.endpoint", "https://auth.iqoption.com/api/v1.0/login")
	v.SetDefault("http.addr", ":5000")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	file := os.Getenv(configFilePathENV)
	if file == "" {
		file = defaultConfigFile
	}
	return Load(file)
}

// Load читает дефолты, затем файл (если есть), затем ENV с префиксом BOT_.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", file, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Strategy.FastPeriod >= c.Strategy.SlowPeriod {
		return fmt.Errorf("strategy.fast_period must be < strategy.slow_period")
	}
	if c.HistoryCapacity < c.MinHistory() {
		return fmt.Errorf("history_capacity %d is below the longest lookback %d", c.HistoryCapacity, c.MinHistory())
	}
	return nil
}

// MinHistory: минимально нужная длина окна для всех индикаторов.
func (c *Config) MinHistory() int {
	n := c.Strategy.SlowPeriod
	if c.Strategy.RSIPeriod+1 > n {
		n = c.Strategy.RSIPeriod + 1
	}
	if n < 3 {
		n = 3
	}
	return n
}

func (c *Config) Timeframe() time.Duration {
	return time.Duration(c.TimeframeMinutes) * time.Minute
}

func (c *Config) Expiration() time.Duration {
	return time.Duration(c.ExpirationMinutes) * time.Minute
}

func (c *Config) StakeAmount() decimal.Decimal { return decimal.NewFromFloat(c.Stake) }

func (c *Config) PayoutRate() decimal.Decimal { return decimal.NewFromFloat(c.Payout) }

func (c *Config) StartBalance() decimal.Decimal { return decimal.NewFromFloat(c.InitialBalance) }

func (c *Config) HasCredentials() bool { return c.Auth.Email != "" && c.Auth.Password != "" }
