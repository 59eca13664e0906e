package config

import (
	"strings"
	"testing"
)

const sampleYAML = `
database:
  host: db.internal
  port: 5433
  user: safetrail
  password: "s3cret"
  database: safetrail

rabbitmq:
  host: mq.internal
  user: guest
  password: guest

gateway:
  port: 9090

tracker:
  backend_url: ws://gateway:9090/ws/tourist
  nearby_radius_km: 10
  reconnect_attempts: 3

predictors:
  geo_url: http://predictor:5000/api/georisk
  weather_url: http://predictor:5000/api/weather
  retry_attempts: 2
  retry_backoff_ms: 500

jwt:
  secret_key: 'test-secret'
`

func TestParseYAMLSample(t *testing.T) {
	var cfg Config
	if err := parseYAML(strings.NewReader(sampleYAML), &cfg); err != nil {
		t.Fatalf("parseYAML failed: %v", err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("quoted password not resolved: %q", cfg.Database.Password)
	}
	if cfg.RabbitMQ.Port != 5672 {
		t.Errorf("rabbitmq.port default not applied: %d", cfg.RabbitMQ.Port)
	}
	if cfg.Gateway.Port != 9090 {
		t.Errorf("gateway port = %d, want 9090", cfg.Gateway.Port)
	}
	if cfg.Tracker.NearbyRadiusKm != 10 {
		t.Errorf("nearby_radius_km = %f, want 10", cfg.Tracker.NearbyRadiusKm)
	}
	if cfg.Tracker.RefilterKm != 5 {
		t.Errorf("refilter_km default = %f, want 5", cfg.Tracker.RefilterKm)
	}
	if cfg.Tracker.CatalogURL != "http://localhost:8080/api/zones" {
		t.Errorf("catalog_url default = %q", cfg.Tracker.CatalogURL)
	}
	if cfg.Tracker.ReconnectAttempts != 3 {
		t.Errorf("reconnect_attempts = %d, want 3", cfg.Tracker.ReconnectAttempts)
	}
	if cfg.JWT.SecretKey != "test-secret" {
		t.Errorf("jwt secret = %q, want test-secret", cfg.JWT.SecretKey)
	}
}

func TestParseYAMLUnknownKey(t *testing.T) {
	bad := "tracker:\n  unknown_thing: 1\n"
	var cfg Config
	if err := parseYAML(strings.NewReader(bad), &cfg); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseYAMLDuplicateSection(t *testing.T) {
	bad := "gateway:\n  port: 1\ngateway:\n  port: 2\n"
	var cfg Config
	if err := parseYAML(strings.NewReader(bad), &cfg); err == nil {
		t.Fatal("expected error for duplicate section")
	}
}

func TestValidateMissingRequired(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)
	// database user/password/name still missing
	if err := cfg.validate(); err == nil {
		t.Fatal("expected validation error for missing database credentials")
	}
}
