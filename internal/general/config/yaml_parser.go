package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseYAML parses the specific two-level mapping used by config.yaml
func parseYAML(r io.Reader, cfg *Config) error {
	type section int
	const (
		none section = iota
		db
		rm
		gw
		tr
		pr
		jw
	)

	scanner := bufio.NewScanner(r)
	var cur section

	lineNo := 0
	seenTop := map[section]bool{}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		// strip comments
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}

		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// top-level section? (no leading spaces)
		if len(line) > 0 && (line[0] != ' ' && line[0] != '\t') {
			var sec section
			switch strings.TrimSpace(line) {
			case "database:":
				sec = db
			case "rabbitmq:":
				sec = rm
			case "gateway:":
				sec = gw
			case "tracker:":
				sec = tr
			case "predictors:":
				sec = pr
			case "jwt:":
				sec = jw
			default:
				return fmt.Errorf("line %d: unknown top-level key %q", lineNo, strings.TrimSuffix(strings.TrimSpace(line), ":"))
			}
			if seenTop[sec] {
				return fmt.Errorf("line %d: duplicate %q section", lineNo, strings.TrimSuffix(strings.TrimSpace(line), ":"))
			}
			seenTop[sec] = true
			cur = sec
			continue
		}

		// expect indented "key: value"
		if cur == none {
			return fmt.Errorf("line %d: key without a section", lineNo)
		}
		trim := strings.TrimSpace(line)
		colon := strings.IndexByte(trim, ':')
		if colon <= 0 {
			return fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}
		key := strings.TrimSpace(trim[:colon])
		val := resolveScalar(strings.TrimSpace(trim[colon+1:]))

		var err error
		switch cur {
		case db:
			switch key {
			case "host":
				cfg.Database.Host = val
			case "port":
				cfg.Database.Port, err = parseInt(lineNo, "database.port", val)
			case "user":
				cfg.Database.User = val
			case "password":
				cfg.Database.Password = val
			case "database":
				cfg.Database.Name = val
			default:
				return fmt.Errorf("line %d: unknown key in database: %q", lineNo, key)
			}
		case rm:
			switch key {
			case "host":
				cfg.RabbitMQ.Host = val
			case "port":
				cfg.RabbitMQ.Port, err = parseInt(lineNo, "rabbitmq.port", val)
			case "user":
				cfg.RabbitMQ.User = val
			case "password":
				cfg.RabbitMQ.Password = val
			default:
				return fmt.Errorf("line %d: unknown key in rabbitmq: %q", lineNo, key)
			}
		case gw:
			switch key {
			case "port":
				cfg.Gateway.Port, err = parseInt(lineNo, "gateway.port", val)
			default:
				return fmt.Errorf("line %d: unknown key in gateway: %q", lineNo, key)
			}
		case tr:
			switch key {
			case "backend_url":
				cfg.Tracker.BackendURL = val
			case "catalog_url":
				cfg.Tracker.CatalogURL = val
			case "auth_token":
				cfg.Tracker.AuthToken = val
			case "nearby_radius_km":
				cfg.Tracker.NearbyRadiusKm, err = parseFloat(lineNo, "tracker.nearby_radius_km", val)
			case "refilter_km":
				cfg.Tracker.RefilterKm, err = parseFloat(lineNo, "tracker.refilter_km", val)
			case "reconnect_attempts":
				cfg.Tracker.ReconnectAttempts, err = parseInt(lineNo, "tracker.reconnect_attempts", val)
			case "reconnect_delay_seconds":
				cfg.Tracker.ReconnectDelaySeconds, err = parseInt(lineNo, "tracker.reconnect_delay_seconds", val)
			default:
				return fmt.Errorf("line %d: unknown key in tracker: %q", lineNo, key)
			}
		case pr:
			switch key {
			case "geo_url":
				cfg.Predictors.GeoURL = val
			case "weather_url":
				cfg.Predictors.WeatherURL = val
			case "geocode_url":
				cfg.Predictors.GeocodeURL = val
			case "retry_attempts":
				cfg.Predictors.RetryAttempts, err = parseInt(lineNo, "predictors.retry_attempts", val)
			case "retry_backoff_ms":
				cfg.Predictors.RetryBackoffMs, err = parseInt(lineNo, "predictors.retry_backoff_ms", val)
			default:
				return fmt.Errorf("line %d: unknown key in predictors: %q", lineNo, key)
			}
		case jw:
			switch key {
			case "secret_key":
				cfg.JWT.SecretKey = val
			default:
				return fmt.Errorf("line %d: unknown key in jwt: %q", lineNo, key)
			}
		}
		if err != nil {
			return err
		}
	}

	return scanner.Err()
}

func parseInt(lineNo int, field, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s must be int: %v", lineNo, field, err)
	}
	return n, nil
}

func parseFloat(lineNo int, field, val string) (float64, error) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s must be a number: %v", lineNo, field, err)
	}
	return f, nil
}

// resolveScalar trims whitespace and removes surrounding quotes from
// YAML-like scalars so values such as jwt.secret_key are not stored with
// extra quotes.
func resolveScalar(s string) string {
	s = strings.TrimSpace(s)

	n := len(s)
	if n >= 2 {
		if (s[0] == '"' && s[n-1] == '"') || (s[0] == '\'' && s[n-1] == '\'') {
			if unq, err := strconv.Unquote(s); err == nil {
				return unq
			}
			// fallback if strconv.Unquote fails (e.g., mismatched quotes)
			return s[1 : n-1]
		}
	}

	return s
}
