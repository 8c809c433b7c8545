package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Task     TaskConfig
	Backoff  BackoffConfig
	Poller   PollerConfig
	Metrics  MetricsConfig
	Auth     AuthConfig
	LogLevel string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimitRPS int
	EnableHSTS   bool
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	PoolMaxConns int
}

// DSN returns a pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode, d.PoolMaxConns)
}

// MigrationDSN returns a connection string in the scheme golang-migrate's
// pgx/v5 driver expects, which differs from the pgxpool scheme.
func (d DatabaseConfig) MigrationDSN() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type WorkerConfig struct {
	ID              string
	Concurrency     int
	ClaimDuration   time.Duration
	ShutdownTimeout time.Duration
}

// TaskConfig holds the defaults applied to every task at enqueue time; the
// enqueue request carries no per-task override.
type TaskConfig struct {
	Timeout     time.Duration
	MaxAttempts int // 0 means unbounded
}

type BackoffConfig struct {
	Policy   string
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

type PollerConfig struct {
	Interval    time.Duration
	GCInterval  time.Duration
	GCRetention time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type AuthConfig struct {
	Enabled bool
	// BearerToken is loaded from configuration but not read by the
	// authenticate middleware, which validates a JWT bearer token signed
	// with JWTSecret.
	BearerToken string
	JWTSecret   string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/torque")

	setDefaults()

	viper.SetEnvPrefix("TORQUE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readtimeout", 30*time.Second)
	viper.SetDefault("server.writetimeout", 30*time.Second)
	viper.SetDefault("server.idletimeout", 120*time.Second)
	viper.SetDefault("server.ratelimitrps", 1000)
	viper.SetDefault("server.enablehsts", true)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "torque")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "torque")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.poolmaxconns", 20)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.poolsize", 50)
	viper.SetDefault("redis.dialtimeout", 5*time.Second)
	viper.SetDefault("redis.readtimeout", 3*time.Second)
	viper.SetDefault("redis.writetimeout", 3*time.Second)

	viper.SetDefault("worker.id", "")
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.claimduration", 30*time.Second)
	viper.SetDefault("worker.shutdowntimeout", 30*time.Second)

	viper.SetDefault("task.timeout", 10*time.Second)
	viper.SetDefault("task.maxattempts", 0)

	viper.SetDefault("backoff.policy", "exponential")
	viper.SetDefault("backoff.basedelay", 1*time.Second)
	viper.SetDefault("backoff.maxdelay", 5*time.Minute)

	viper.SetDefault("poller.interval", 1*time.Second)
	viper.SetDefault("poller.gcinterval", time.Minute)
	viper.SetDefault("poller.gcretention", 7*24*time.Hour)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("auth.enabled", true)
	viper.SetDefault("auth.bearertoken", "")
	viper.SetDefault("auth.jwtsecret", "")

	viper.SetDefault("loglevel", "info")
}
