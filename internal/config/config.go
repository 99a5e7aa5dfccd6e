package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Translate TranslateConfig `mapstructure:"translate"`
	Presence  PresenceConfig  `mapstructure:"presence"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// StoreConfig 共享存储后端：memory 或 redis
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// NATSConfig URL 为空时使用进程内通知
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// DatabaseConfig Enabled 为 false 时不记录对局结果
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SessionConfig struct {
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	HostLossRecheck   time.Duration `mapstructure:"host_loss_recheck"`
	MinPlayers        int           `mapstructure:"min_players"`
	RoomTTL           time.Duration `mapstructure:"room_ttl"`
	CodeRetries       int           `mapstructure:"code_retries"`
}

type TranslateConfig struct {
	GoogleURL   string        `mapstructure:"google_url"`
	MyMemoryURL string        `mapstructure:"mymemory_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type PresenceConfig struct {
	TTL                 time.Duration `mapstructure:"ttl"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"`
	ReapInterval        time.Duration `mapstructure:"reap_interval"`
	ClientTimeout       time.Duration `mapstructure:"client_timeout"`
	ClientCheckInterval time.Duration `mapstructure:"client_check_interval"`
}

// Load 从指定路径加载配置，环境变量覆盖文件值，未设置的字段取默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

// Default 全部使用默认值的配置
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

// applyEnv 从环境变量覆盖配置
func (c *Config) applyEnv() {
	// App
	c.App.Mode = GetEnv("IMPOSTOR_MODE", c.App.Mode)
	c.App.LogLevel = GetEnv("IMPOSTOR_LOG_LEVEL", c.App.LogLevel)
	c.HTTP.Port = GetEnvInt("IMPOSTOR_HTTP_PORT", c.HTTP.Port)
	c.Store.Driver = GetEnv("IMPOSTOR_STORE_DRIVER", c.Store.Driver)

	// Redis
	c.Redis.Host = GetEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = GetEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = GetEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = GetEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = GetEnvInt("REDIS_POOL_SIZE", c.Redis.PoolSize)

	// NATS
	c.NATS.URL = GetEnv("NATS_URL", c.NATS.URL)

	// Database
	c.Database.Enabled = GetEnvBool("POSTGRES_ENABLED", c.Database.Enabled)
	c.Database.Host = GetEnv("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = GetEnvInt("POSTGRES_PORT", c.Database.Port)
	c.Database.User = GetEnv("POSTGRES_USER", c.Database.User)
	c.Database.Password = GetEnv("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Name = GetEnv("POSTGRES_DB", c.Database.Name)

	// Session
	c.Session.MinPlayers = GetEnvInt("IMPOSTOR_MIN_PLAYERS", c.Session.MinPlayers)
	c.Session.ReconcileInterval = GetEnvDuration("IMPOSTOR_RECONCILE_INTERVAL", c.Session.ReconcileInterval)
	c.Presence.ClientTimeout = GetEnvDuration("IMPOSTOR_CLIENT_TIMEOUT", c.Presence.ClientTimeout)
}

func (c *Config) applyDefaults() {
	setDefault(&c.App.Name, "impostor")
	setDefault(&c.App.Mode, "release")
	setDefault(&c.App.LogLevel, "info")
	setDefault(&c.HTTP.Port, 8080)
	setDefault(&c.HTTP.ShutdownTimeout, 10*time.Second)
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"*"}
	}
	setDefault(&c.Store.Driver, "memory")
	setDefault(&c.Store.KeyPrefix, "impostor:")

	setDefault(&c.Redis.Host, "localhost")
	setDefault(&c.Redis.Port, 6379)
	setDefault(&c.Redis.PoolSize, 20)

	setDefault(&c.NATS.MaxReconnects, -1)
	setDefault(&c.NATS.ReconnectWait, 2*time.Second)

	setDefault(&c.Database.Host, "localhost")
	setDefault(&c.Database.Port, 5432)
	setDefault(&c.Database.Name, "impostor")
	setDefault(&c.Database.MaxOpenConns, 10)
	setDefault(&c.Database.MaxIdleConns, 2)
	setDefault(&c.Database.ConnMaxLifetime, time.Hour)

	setDefault(&c.Session.ReconcileInterval, 2*time.Second)
	setDefault(&c.Session.HostLossRecheck, 300*time.Millisecond)
	setDefault(&c.Session.MinPlayers, 3)
	setDefault(&c.Session.RoomTTL, 48*time.Hour)
	setDefault(&c.Session.CodeRetries, 5)

	setDefault(&c.Translate.Timeout, 10*time.Second)

	setDefault(&c.Presence.TTL, 30*time.Second)
	setDefault(&c.Presence.HeartbeatInterval, 10*time.Second)
	setDefault(&c.Presence.ReapInterval, 5*time.Second)
	setDefault(&c.Presence.ClientTimeout, 90*time.Second)
	setDefault(&c.Presence.ClientCheckInterval, 15*time.Second)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
