package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/Dave1206/Memory-App-sub000/pkg/config"
	"github.com/Dave1206/Memory-App-sub000/pkg/database"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Database  database.Config
	Redis     RedisConfig
	Kafka     KafkaConfig
	Presence  PresenceConfig
	History   HistoryConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers string
	Topic   string
	GroupID string `mapstructure:"group_id"`
}

type PresenceConfig struct {
	// Mode selects the online predicate: "registry" asks the in-memory
	// connection registry, "sessions" checks redis session liveness.
	Mode       string
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type HistoryConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8085)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "10s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "memoryapp")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "domain-events")
	v.SetDefault("kafka.group_id", "realtime-core")
	v.SetDefault("presence.mode", "registry")
	v.SetDefault("presence.session_ttl", "2m")
	v.SetDefault("history.cache_ttl", "30s")
	v.SetDefault("history.default_limit", 50)
	v.SetDefault("history.max_limit", 200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "realtime")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 10*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Presence.SessionTTL = parseDuration(v, "presence.session_ttl", 2*time.Minute)
	cfg.History.CacheTTL = parseDuration(v, "history.cache_ttl", 30*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
