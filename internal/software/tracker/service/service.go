package service

import (
	"context"
	"sync"
	"time"

	"safetrail/internal/domain/alert"
	"safetrail/internal/domain/geo"
	"safetrail/internal/domain/zone"
	"safetrail/internal/general/contracts"
	"safetrail/internal/general/logger"
	"safetrail/internal/tracker/alerts"
	"safetrail/internal/tracker/catalog"
	"safetrail/internal/tracker/channel"
	"safetrail/internal/tracker/geocode"
	"safetrail/internal/tracker/predict"
	"safetrail/internal/tracker/proximity"
	"safetrail/internal/tracker/score"
)

// LocationSource provides the device's current position. The tracker polls
// it; implementations decide how fixes are produced.
type LocationSource interface {
	Current(ctx context.Context) (geo.Coordinate, error)
}

// Tracker is the client-side core: it keeps the gateway session alive, walks
// the zone catalog on every fix, fuses safety predictions, and runs the alert
// lifecycle.
type Tracker struct {
	log      *logger.Logger
	ch       *channel.Channel
	engine   *proximity.Engine
	agg      *score.Aggregator
	alertMgr *alerts.Manager
	loader   *catalog.Loader
	predict  *predict.Client
	geocoder *geocode.Client
	source   LocationSource

	mu          sync.Mutex
	zones       []zone.Definition
	zoneState   map[string]proximity.State
	catalogAt   *geo.Coordinate // position of the last catalog fetch
	unsubscribe []func()
}

func New(
	log *logger.Logger,
	ch *channel.Channel,
	engine *proximity.Engine,
	agg *score.Aggregator,
	alertMgr *alerts.Manager,
	loader *catalog.Loader,
	predictClient *predict.Client,
	geocoder *geocode.Client,
	source LocationSource,
) *Tracker {
	return &Tracker{
		log:       log,
		ch:        ch,
		engine:    engine,
		agg:       agg,
		alertMgr:  alertMgr,
		loader:    loader,
		predict:   predictClient,
		geocoder:  geocoder,
		source:    source,
		zoneState: make(map[string]proximity.State),
	}
}

// Run connects the channel, starts periodic location pushes, and evaluates
// safety on every sample until ctx is canceled.
func (t *Tracker) Run(ctx context.Context, touristID string, sampleInterval time.Duration) error {
	initial, err := t.source.Current(ctx)
	if err != nil {
		t.log.Error(ctx, "initial_fix_failed", "no initial position available", err, nil)
		return err
	}

	ctx = t.log.WithTouristID(ctx, touristID)
	t.subscribe(ctx)
	defer t.teardown()

	if err := t.ch.Connect(ctx, touristID, initial); err != nil {
		// the channel keeps retrying in the background after transport loss;
		// a failed initial connect is fatal for the session
		return err
	}

	t.ch.StartPeriodicLocationUpdates(func() geo.Coordinate {
		loc, err := t.source.Current(context.Background())
		if err != nil {
			return initial
		}
		return loc
	})

	t.evaluate(ctx, initial)

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			loc, err := t.source.Current(ctx)
			if err != nil {
				t.log.Error(ctx, "fix_failed", "position sample unavailable", err, nil)
				continue
			}
			t.evaluate(ctx, loc)
		}
	}
}

// evaluate refreshes the catalog when the tourist moved far enough, runs the
// proximity engine, and refreshes the fused safety score.
func (t *Tracker) evaluate(ctx context.Context, loc geo.Coordinate) {
	t.maybeRefreshCatalog(ctx, loc)

	t.mu.Lock()
	zones := t.zones
	prev := t.zoneState
	t.mu.Unlock()

	result := t.engine.Evaluate(loc, zones, prev)

	t.mu.Lock()
	t.zoneState = result.State
	t.mu.Unlock()

	for _, tr := range result.Transitions {
		t.log.Info(ctx, "zone_transition", "zone proximity changed", map[string]any{
			"zone_id":     tr.ZoneID,
			"zone_name":   tr.ZoneName,
			"kind":        string(tr.Kind),
			"risk":        string(tr.Risk),
			"distance_km": tr.DistanceKm,
		})
	}

	t.refreshScore(ctx, loc, result)
}

// maybeRefreshCatalog re-fetches the zone catalog once the tourist has moved
// past the refilter distance from the previous fetch. Fetch failures keep the
// current catalog.
func (t *Tracker) maybeRefreshCatalog(ctx context.Context, loc geo.Coordinate) {
	t.mu.Lock()
	last := t.catalogAt
	t.mu.Unlock()

	if last != nil && !t.engine.ShouldReevaluate(*last, loc) {
		return
	}

	zones, err := t.loader.Fetch(ctx, loc, t.engine.NearbyRadiusKm())
	if err != nil {
		t.log.Error(ctx, "catalog_fetch_failed", "keeping previous zone catalog", err, nil)
		return
	}

	t.mu.Lock()
	t.zones = zones
	t.zoneState = make(map[string]proximity.State) // catalog replace resets state
	at := loc
	t.catalogAt = &at
	t.mu.Unlock()
}

// refreshScore fuses the two predictions unless a server push has taken over.
func (t *Tracker) refreshScore(ctx context.Context, loc geo.Coordinate, result proximity.Result) {
	if t.agg.ServerOverrideActive() {
		return
	}

	var wg sync.WaitGroup
	var geoScore, weatherScore *float64
	wg.Add(2)
	go func() { defer wg.Done(); geoScore = t.predict.GeoScore(ctx, loc) }()
	go func() { defer wg.Done(); weatherScore = t.predict.WeatherScore(ctx, loc) }()
	wg.Wait()

	snap := t.agg.Aggregate(geoScore, weatherScore)
	t.log.Info(ctx, "safety_score_updated", "local safety score refreshed", map[string]any{
		"score":        snap.Score,
		"status":       snap.Status,
		"nearby_zones": len(result.Nearby),
	})
}

// subscribe wires the channel's inbound events into the tracker.
func (t *Tracker) subscribe(ctx context.Context) {
	t.unsubscribe = append(t.unsubscribe,
		t.ch.OnAuthorityAlert(func(msg contracts.AuthorityAlertMessage) {
			rec := recordOf(msg)
			t.log.Info(ctx, "alert_received", "authority alert received", map[string]any{
				"alert_id": rec.ID, "category": string(rec.Category), "priority": string(rec.Priority),
			})
			t.alertMgr.Receive(ctx, rec)
		}),
		t.ch.OnSafetyScoreUpdate(func(msg contracts.SafetyScoreUpdateMessage) {
			snap := t.agg.ApplyServerSnapshot(msg)
			t.log.Info(ctx, "server_score_applied", "authoritative score replaced local aggregate", map[string]any{
				"score": snap.Score, "status": snap.Status, "threat": snap.NearestThreat,
			})
		}),
		t.ch.OnSafetyScoreAlert(func(msg contracts.SafetyScoreAlertMessage) {
			t.log.Info(ctx, "score_alert_received", "notable score change pushed by gateway", map[string]any{
				"change_type": msg.ChangeType,
				"previous":    msg.PreviousScore,
				"new":         msg.NewScore,
			})
			t.agg.ApplyServerSnapshot(msg.SafetyScoreData)
		}),
	)
}

func (t *Tracker) teardown() {
	for _, off := range t.unsubscribe {
		off()
	}
	t.unsubscribe = nil
	t.ch.StopPeriodicLocationUpdates()
	t.alertMgr.Stop()
}

// PlaceName resolves the current position to a human-readable name; used for
// labeling the session in logs and notifications.
func (t *Tracker) PlaceName(ctx context.Context, loc geo.Coordinate) string {
	name, err := t.geocoder.ReverseGeocode(ctx, loc)
	if err != nil {
		return ""
	}
	return name
}

// LiveAlerts exposes the current unexpired alert list.
func (t *Tracker) LiveAlerts() []alert.Record {
	return t.alertMgr.Live()
}

// CurrentScore exposes the latest safety snapshot.
func (t *Tracker) CurrentScore() score.Snapshot {
	return t.agg.Current()
}

// recordOf converts the wire alert into a lifecycle record.
func recordOf(msg contracts.AuthorityAlertMessage) alert.Record {
	rec := alert.NewRecord(msg.AlertID, alert.Category(msg.Type), msg.Title, msg.Message, alert.Priority(msg.Priority), time.Now().UTC())
	rec.AuthorityID = msg.AuthorityID
	rec.AuthorityName = msg.AuthorityName
	rec.ActionRequired = msg.ActionRequired
	if msg.TargetArea != nil {
		rec.Target = &alert.TargetArea{
			Center:   geo.Coordinate{Lat: msg.TargetArea.Lat, Lng: msg.TargetArea.Lng},
			RadiusKm: msg.TargetArea.Radius,
		}
	}
	return rec
}
