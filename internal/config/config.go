package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config 调度顾问服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 外部评分服务（不可达时回退到本地确定性规则）
	Scorer struct {
		BaseURL    string // 为空表示禁用外部评分，直接走本地规则
		TimeoutSec int
		RetryCount int
	}

	// 顾问核心配置
	Advisor struct {
		// Redis 缓存配置
		Cache struct {
			SnapshotPrefix  string // 展示快照键前缀，如 "coldchain:snapshot:"
			SnapshotTTL     int    // 快照 TTL（秒）
			TelemetryPrefix string // 仓区遥测键前缀，如 "coldchain:zone:"
			TelemetrySuffix string // 仓区遥测键后缀，如 ":telemetry"
		}

		PollInterval       int // 遥测轮询间隔（秒）
		QueueLimit         int // 活跃建议队列展示上限
		SimulationCooldown int // 模拟触发冷却窗口（秒）
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	// TopicPrefix 遥测主题前缀，完整主题为 <prefix>/zone/<zone_id>/telemetry
	TopicPrefix string
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（带默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "coldchain")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "coldchain-advisor")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "coldchain")

	cfg.Scorer.BaseURL = getEnv("SCORER_BASE_URL", "")
	cfg.Scorer.TimeoutSec = getEnvInt("SCORER_TIMEOUT", 5)
	cfg.Scorer.RetryCount = getEnvInt("SCORER_RETRY_COUNT", 2)

	cfg.Advisor.Cache.SnapshotPrefix = getEnv("CACHE_SNAPSHOT_PREFIX", "coldchain:snapshot:")
	cfg.Advisor.Cache.SnapshotTTL = getEnvInt("CACHE_SNAPSHOT_TTL", 30)
	cfg.Advisor.Cache.TelemetryPrefix = getEnv("CACHE_TELEMETRY_PREFIX", "coldchain:zone:")
	cfg.Advisor.Cache.TelemetrySuffix = ":telemetry"

	cfg.Advisor.PollInterval = getEnvInt("POLL_INTERVAL", 5)
	cfg.Advisor.QueueLimit = getEnvInt("QUEUE_LIMIT", 10)
	cfg.Advisor.SimulationCooldown = getEnvInt("SIMULATION_COOLDOWN", 30)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
