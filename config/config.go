package config

import (
	"fmt"
	"time"

	"github.com/Dias-T/tow-dispatch-system/pkg/configparser"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Service  ServiceConfig
		Database DatabaseConfig
		RabbitMQ RabbitMQConfig
		HTTP     HTTPConfig
		Auth     Auth
		Weather  WeatherConfig
		Dispatch DispatchConfig
		Fare     FareConfig
	}

	ServiceConfig struct {
		Name     string `env:"SERVICE_NAME" default:"dispatch"`
		LogLevel string `env:"SERVICE_LOG_LEVEL" default:"INFO"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"towdispatch_user"`
		Password string `env:"DATABASE_PASSWORD" default:"towdispatch_pass"`
		Database string `env:"DATABASE_DATABASE" default:"towdispatch_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`         // максимум открытых соединений
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`          // минимум соединений в пуле
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"` // макс. "время жизни" соединения
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`  // макс. "время простоя" соединения
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	HTTPConfig struct {
		Port string `env:"HTTP_PORT" default:"3000"`
	}

	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	WeatherConfig struct {
		BaseURL string        `env:"WEATHER_BASE_URL" default:"https://api.open-meteo.com"`
		Timeout time.Duration `env:"WEATHER_TIMEOUT" default:"5s"`
	}

	DispatchConfig struct {
		// BroadcastWindow сколько ждем ответа водителей на один раунд
		BroadcastWindow time.Duration `env:"DISPATCH_BROADCAST_WINDOW" default:"30s"`
		MaxRounds       int           `env:"DISPATCH_MAX_ROUNDS" default:"3"`
		SearchRadiusKm  float64       `env:"DISPATCH_SEARCH_RADIUS_KM" default:"10"`
	}

	FareConfig struct {
		// ScarcityWindow is the lookback window for the active-request count
		ScarcityWindow time.Duration `env:"FARE_SCARCITY_WINDOW" default:"30m"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (maxConns, minConns int32, maxLifetime, maxIdleTime time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	return cfg, nil
}
