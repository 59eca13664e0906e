package trackerservice

import (
	"context"
	"time"

	"safetrail/internal/cli"
	"safetrail/internal/domain/alert"
	"safetrail/internal/domain/geo"
	"safetrail/internal/general/config"
	"safetrail/internal/general/logger"
	"safetrail/internal/software/tracker/service"
	"safetrail/internal/tracker/alerts"
	"safetrail/internal/tracker/catalog"
	"safetrail/internal/tracker/channel"
	"safetrail/internal/tracker/geocode"
	"safetrail/internal/tracker/predict"
	"safetrail/internal/tracker/proximity"
	"safetrail/internal/tracker/score"
)

// staticSource reports a fixed position. Real deployments replace this with a
// GPS feed; for a headless tracker the coordinates come from flags.
type staticSource struct {
	loc geo.Coordinate
}

func (s staticSource) Current(ctx context.Context) (geo.Coordinate, error) {
	return s.loc, nil
}

// Run wires the tourist-side tracker and blocks until ctx is cancelled.
func Run(ctx context.Context, touristID string, lat, lng float64, sampleInterval time.Duration) error {
	// set up a new logger for the tracker; all log lines carry the tourist ID
	logger := logger.New("tracker-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// the gateway authenticates the websocket with a first-frame JWT; use the
	// configured token, or mint one from the shared secret for dev setups
	token := cfg.Tracker.AuthToken
	if token == "" {
		token, _, err = cli.GenerateUserToken(cfg.JWT.SecretKey, touristID, "TOURIST")
		if err != nil {
			logger.Error(ctx, "token_mint_failed", "Failed to mint tourist token", err, nil)
			return err
		}
	}

	// resilient websocket channel to the gateway
	ch := channel.New(cfg.Tracker.BackendURL, channel.GorillaTransport{}, channel.ReconnectPolicy{
		MaxAttempts: cfg.Tracker.ReconnectAttempts,
		Delay:       cfg.ReconnectDelay(),
	}, logger)
	ch.SetAuthToken(token)
	defer ch.Close()

	// geofence engine with the configured nearby/refilter bands
	engine := proximity.NewEngine(cfg.Tracker.NearbyRadiusKm, cfg.Tracker.RefilterKm)

	// score aggregator; server pushes override the local aggregate
	agg := score.NewAggregator()

	// alert lifecycle manager; notifications go to the structured log
	alertMgr := alerts.NewManager(alerts.NotifierFunc(func(a alert.Record, occurrence int) {
		logger.Info(ctx, "authority_alert_notice", a.Title, map[string]any{
			"alert_id":   a.ID,
			"category":   string(a.Category),
			"priority":   string(a.Priority),
			"occurrence": occurrence,
		})
	}), logger)

	// zone catalog loader against the gateway's zone API
	loader := catalog.NewLoader(cfg.Tracker.CatalogURL, logger)

	// external predictors and reverse geocoding share a retry policy
	retry := predict.RetryPolicy{
		MaxAttempts: cfg.Predictors.RetryAttempts,
		Backoff:     cfg.RetryBackoff(),
	}
	predictClient := predict.NewClient(cfg.Predictors.GeoURL, cfg.Predictors.WeatherURL, retry, logger)
	geocoder := geocode.NewClient(cfg.Predictors.GeocodeURL, retry, logger)

	source := staticSource{loc: geo.Coordinate{Lat: lat, Lng: lng}}

	tracker := service.New(logger, ch, engine, agg, alertMgr, loader, predictClient, geocoder, source)

	logger.Info(ctx, "service_started", "Tracker started", map[string]any{
		"tourist_id":      touristID,
		"backend_url":     cfg.Tracker.BackendURL,
		"sample_interval": sampleInterval.String(),
	})

	return tracker.Run(ctx, touristID, sampleInterval)
}
