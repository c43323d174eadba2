package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DB      *Postgres `yaml:"database"`
	RMQ     *RabbitMQ `yaml:"rabbitmq"`
	Gateway *Gateway  `yaml:"payment_gateway"`
	Courier *Courier  `yaml:"courier_network"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQ struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	VHost    string `yaml:"vhost"`
}

// Gateway holds payment gateway connection settings. TimeoutSec bounds every
// outbound call so a gateway outage fails fast instead of hanging checkout.
type Gateway struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Courier holds courier network connection settings.
type Courier struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadDotEnv builds a config from environment variables with local-dev
// defaults, for running without a yaml file.
func LoadDotEnv() *Config {
	cfg := &Config{
		DB: &Postgres{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "curbside"),
			Password: getEnv("POSTGRES_PASSWORD", "curbside"),
			Database: getEnv("POSTGRES_DBNAME", "curbside_db"),
		},
		RMQ: &RabbitMQ{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", "/"),
		},
		Gateway: &Gateway{
			BaseURL:    getEnv("GATEWAY_BASE_URL", "http://localhost:4242"),
			APIKey:     getEnv("GATEWAY_API_KEY", ""),
			TimeoutSec: getEnvInt("GATEWAY_TIMEOUT_SEC", 10),
		},
		Courier: &Courier{
			BaseURL:    getEnv("COURIER_BASE_URL", "http://localhost:4343"),
			APIKey:     getEnv("COURIER_API_KEY", ""),
			TimeoutSec: getEnvInt("COURIER_TIMEOUT_SEC", 10),
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Gateway == nil {
		c.Gateway = &Gateway{}
	}
	if c.Courier == nil {
		c.Courier = &Courier{}
	}
	if c.Gateway.TimeoutSec <= 0 {
		c.Gateway.TimeoutSec = 10
	}
	if c.Courier.TimeoutSec <= 0 {
		c.Courier.TimeoutSec = 10
	}
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
