package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config global configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Business BusinessConfig `mapstructure:"business"`
	SMS      SMSConfig      `mapstructure:"sms"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug/release/test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers       []string         `mapstructure:"brokers"`
	ConsumerGroup string           `mapstructure:"consumer_group"`
	Topic         KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Notification string `mapstructure:"notification"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	SetupSecret string        `mapstructure:"setup_secret"` // guards the one-time admin bootstrap
}

type BusinessConfig struct {
	TrialDays                     int    `mapstructure:"trial_days"`
	Timezone                      string `mapstructure:"timezone"`
	GatewayPurchaseTimeoutMinutes int    `mapstructure:"gateway_purchase_timeout_minutes"`
	MaxRetryCount                 int    `mapstructure:"max_retry_count"`
	MaxDepositCents               int64  `mapstructure:"max_deposit_cents"`
	ReconcileCron                 string `mapstructure:"reconcile_cron"`
}

type SMSConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	SenderID string        `mapstructure:"sender_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Location returns the business timezone used for trial day boundaries.
func (b BusinessConfig) Location() *time.Location {
	if b.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("kafka.consumer_group", "lottoinsight-notify")
	v.SetDefault("kafka.topic.notification", "lotto.notification")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("business.trial_days", 7)
	v.SetDefault("business.gateway_purchase_timeout_minutes", 30)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.max_deposit_cents", 100000)
	v.SetDefault("business.reconcile_cron", "0 */6 * * *")
	v.SetDefault("sms.timeout", 10*time.Second)
}

// LoadConfig reads the YAML file, overlays a .env file when present and
// then LOTTO_* environment variables (LOTTO_MYSQL_PASSWORD -> mysql.password).
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LOTTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if cfg.Business.TrialDays <= 0 {
		return nil, fmt.Errorf("business.trial_days must be positive, got %d", cfg.Business.TrialDays)
	}
	return cfg, nil
}
