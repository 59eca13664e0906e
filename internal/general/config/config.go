package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Gateway struct {
		Port int
	}
	Tracker struct {
		BackendURL            string // websocket endpoint of the gateway
		CatalogURL            string // zone catalog HTTP endpoint of the gateway
		AuthToken             string // bearer token presented on the websocket auth frame
		NearbyRadiusKm        float64
		RefilterKm            float64
		ReconnectAttempts     int
		ReconnectDelaySeconds int
	}
	Predictors struct {
		GeoURL         string
		WeatherURL     string
		GeocodeURL     string
		RetryAttempts  int
		RetryBackoffMs int
	}
	JWT struct {
		SecretKey string
	}
}

// LoadFromFile loads config from a YAML file, applies defaults, and validates
// required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ReconnectDelay returns the channel reconnect delay as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Tracker.ReconnectDelaySeconds) * time.Second
}

// RetryBackoff returns the predictor retry backoff as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Predictors.RetryBackoffMs) * time.Millisecond
}

// applyDefaults sets safe defaults for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 8080
	}

	if cfg.Tracker.BackendURL == "" {
		cfg.Tracker.BackendURL = "ws://localhost:8080/ws/tourist"
	}
	if cfg.Tracker.CatalogURL == "" {
		cfg.Tracker.CatalogURL = "http://localhost:8080/api/zones"
	}
	if cfg.Tracker.NearbyRadiusKm == 0 {
		cfg.Tracker.NearbyRadiusKm = 15
	}
	if cfg.Tracker.RefilterKm == 0 {
		cfg.Tracker.RefilterKm = 5
	}
	if cfg.Tracker.ReconnectAttempts == 0 {
		cfg.Tracker.ReconnectAttempts = 5
	}
	if cfg.Tracker.ReconnectDelaySeconds == 0 {
		cfg.Tracker.ReconnectDelaySeconds = 1
	}

	if cfg.Predictors.RetryAttempts == 0 {
		cfg.Predictors.RetryAttempts = 3
	}
	if cfg.Predictors.RetryBackoffMs == 0 {
		cfg.Predictors.RetryBackoffMs = 1000
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		problems = append(problems, "gateway.port must be in 1..65535")
	}

	if c.Tracker.NearbyRadiusKm <= 0 {
		problems = append(problems, "tracker.nearby_radius_km must be positive")
	}
	if c.Tracker.RefilterKm <= 0 {
		problems = append(problems, "tracker.refilter_km must be positive")
	}
	if c.Tracker.ReconnectAttempts < 1 {
		problems = append(problems, "tracker.reconnect_attempts must be >= 1")
	}

	if c.Predictors.RetryAttempts < 1 {
		problems = append(problems, "predictors.retry_attempts must be >= 1")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
