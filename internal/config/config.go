package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Validation ValidationConfig `mapstructure:"validation"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Backup     BackupConfig     `mapstructure:"backup"`
	Stats      StatsConfig      `mapstructure:"stats"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// ValidationConfig tunes the vendor probe behavior.
type ValidationConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	MinKeyLength int           `mapstructure:"min_key_length"`
	TestPrefix   string        `mapstructure:"test_prefix"`

	OpenAIBaseURL     string `mapstructure:"openai_base_url"`
	ElevenLabsBaseURL string `mapstructure:"elevenlabs_base_url"`
	RunwayBaseURL     string `mapstructure:"runway_base_url"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

type SecretsConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"` // AES-256 key, hex-encoded (64 chars)
}

type BackupConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // For MinIO/LocalStack
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type StatsConfig struct {
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("keywarden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/keywarden")
	}

	v.SetEnvPrefix("KEYWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.rate_limit_per_min", 60)

	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.database", "keywarden")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.max_conns", 20)

	v.SetDefault("validation.probe_timeout", 10*time.Second)
	v.SetDefault("validation.min_key_length", 10)
	v.SetDefault("validation.test_prefix", "TEST_")
	v.SetDefault("validation.openai_base_url", "https://api.openai.com")
	v.SetDefault("validation.elevenlabs_base_url", "https://api.elevenlabs.io")
	v.SetDefault("validation.runway_base_url", "https://api.runwayml.com")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", 24*time.Hour)

	v.SetDefault("secrets.encryption_key", "")

	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.region", "us-east-1")
	v.SetDefault("backup.endpoint", "")
	v.SetDefault("backup.access_key_id", "")
	v.SetDefault("backup.secret_access_key", "")

	v.SetDefault("stats.flush_interval", 60*time.Second)
}
