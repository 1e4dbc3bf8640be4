package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	RabbitMQ   RabbitMQConfig
	Redis      RedisConfig
	Stripe     StripeConfig
	Analytics  AnalyticsConfig
	Worker     WorkerConfig
	Commission CommissionConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RabbitMQConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	VHost    string
}

type RedisConfig struct {
	URL string
}

type StripeConfig struct {
	SecretKey string
}

type AnalyticsConfig struct {
	Host  string
	Token string
}

type WorkerConfig struct {
	TaskQueue             string
	TaskExchange          string
	TaskRoutingKey        string
	NotificationsExchange string
	PrefetchCount         int
}

type CommissionConfig struct {
	HoldDays           int
	PlatformFeePercent float64
	FeeFallbackPercent float64
	FeeFallbackFixed   int64
	DefaultReward      string
	MaturityIntervalS  int
}

func Load() (*Config, error) {
	var missing []string

	get := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			missing = append(missing, key)
		}
		return val
	}

	config := &Config{
		Server: ServerConfig{
			Port: get("SERVER_PORT"),
			Host: get("SERVER_HOST"),
		},
		Database: DatabaseConfig{
			Host:     get("DB_HOST"),
			Port:     get("DB_PORT"),
			User:     get("DB_USER"),
			Password: get("DB_PASSWORD"),
			DBName:   get("DB_NAME"),
			SSLMode:  get("DB_SSLMODE"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Host:     get("RABBITMQ_HOST"),
			Port:     get("RABBITMQ_PORT"),
			User:     get("RABBITMQ_USER"),
			Password: get("RABBITMQ_PASSWORD"),
			VHost:    get("RABBITMQ_VHOST"),
		},
		Redis: RedisConfig{
			URL: get("REDIS_URL"),
		},
		Stripe: StripeConfig{
			SecretKey: get("STRIPE_SECRET_KEY"),
		},
		Analytics: AnalyticsConfig{
			Host:  get("ANALYTICS_HOST"),
			Token: get("ANALYTICS_TOKEN"),
		},
		Worker: WorkerConfig{
			TaskQueue:             getOrDefault("TASK_QUEUE", "payment-events"),
			TaskExchange:          os.Getenv("TASK_EXCHANGE"),
			TaskRoutingKey:        getOrDefault("TASK_ROUTING_KEY", "payment-events"),
			NotificationsExchange: getOrDefault("NOTIFICATIONS_EXCHANGE", "notifications"),
			PrefetchCount:         getIntOrDefault("WORKER_PREFETCH", 8),
		},
		Commission: CommissionConfig{
			HoldDays:           getIntOrDefault("COMMISSION_HOLD_DAYS", 30),
			PlatformFeePercent: getFloatOrDefault("PLATFORM_FEE_PERCENT", 15),
			FeeFallbackPercent: getFloatOrDefault("FEE_FALLBACK_PERCENT", 2.9),
			FeeFallbackFixed:   int64(getIntOrDefault("FEE_FALLBACK_FIXED", 30)),
			DefaultReward:      getOrDefault("DEFAULT_REWARD", "0"),
			MaturityIntervalS:  getIntOrDefault("MATURITY_INTERVAL_SECONDS", 3600),
		},
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return config, nil
}

func getOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getIntOrDefault(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getFloatOrDefault(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// ConnectionString returns a DSN string for GORM
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode)
}

func (c *RabbitMQConfig) ConnectionURL() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s%s",
		c.User, c.Password, c.Host, c.Port, c.VHost)
}
