package score

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"safetrail/internal/general/contracts"
)

// Source tags a snapshot's provenance.
type Source string

const (
	SourceLocalAggregate Source = "local-aggregate"
	SourceServerPush     Source = "server-push"
)

// Weighting of the two upstream predictions when both are present.
const (
	geoWeight     = 0.6
	weatherWeight = 0.4
	neutralScore  = 50
)

// Snapshot is an immutable point-in-time safety score with provenance.
type Snapshot struct {
	Score         int
	Status        string // Safe | Moderate | Caution | High Risk
	Label         string // Excellent | Good | Moderate | Low
	GeoScore      *float64
	WeatherScore  *float64
	NearestThreat string
	Source        Source
	Timestamp     time.Time
}

// Aggregator fuses the two independent risk predictions into one bounded
// score, and accepts server-pushed scores as an authoritative override. Once
// a server push has been observed, local re-aggregation is suppressed for the
// rest of the session.
type Aggregator struct {
	mu         sync.Mutex
	current    Snapshot
	serverSeen bool
}

// NewAggregator starts at the neutral score with no provenance-based
// suppression.
func NewAggregator() *Aggregator {
	a := &Aggregator{}
	a.current = localSnapshot(nil, nil, time.Now().UTC())
	return a
}

// Aggregate combines the upstream predictions. A nil score means that fetch
// failed or has not resolved; that is expected, not an error. Returns the
// current snapshot unchanged when a server push has already taken over.
func (a *Aggregator) Aggregate(geoScore, weatherScore *float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.serverSeen {
		return a.current
	}

	a.current = localSnapshot(geoScore, weatherScore, time.Now().UTC())
	return a.current
}

// ApplyServerSnapshot replaces the current snapshot unconditionally with the
// server's authoritative score and suppresses further local aggregation for
// the session.
func (a *Aggregator) ApplyServerSnapshot(data contracts.SafetyScoreUpdateMessage) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	sc := clamp(int(math.Round(data.SafetyScore)))
	status, label := band(sc)

	ts := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, data.Timestamp); err == nil {
		ts = t
	}

	a.current = Snapshot{
		Score:         sc,
		Status:        status,
		Label:         label,
		GeoScore:      data.GeofenceScore,
		WeatherScore:  data.WeatherScore,
		NearestThreat: describeThreat(data),
		Source:        SourceServerPush,
		Timestamp:     ts,
	}
	a.serverSeen = true
	return a.current
}

// Current returns the latest snapshot.
func (a *Aggregator) Current() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// ServerOverrideActive reports whether local aggregation is suppressed.
func (a *Aggregator) ServerOverrideActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serverSeen
}

func localSnapshot(geoScore, weatherScore *float64, ts time.Time) Snapshot {
	var raw float64
	switch {
	case geoScore != nil && weatherScore != nil:
		raw = *geoScore*geoWeight + *weatherScore*weatherWeight
	case geoScore != nil:
		raw = *geoScore
	case weatherScore != nil:
		raw = *weatherScore
	default:
		raw = neutralScore
	}

	sc := clamp(int(math.Round(raw)))
	status, label := band(sc)

	return Snapshot{
		Score:        sc,
		Status:       status,
		Label:        label,
		GeoScore:     geoScore,
		WeatherScore: weatherScore,
		Source:       SourceLocalAggregate,
		Timestamp:    ts,
	}
}

func clamp(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// band maps a score to its status and label. The 80/60/40 boundaries are
// load-bearing and must not drift.
func band(score int) (status, label string) {
	switch {
	case score >= 80:
		return "Safe", "Excellent"
	case score >= 60:
		return "Moderate", "Good"
	case score >= 40:
		return "Caution", "Moderate"
	default:
		return "High Risk", "Low"
	}
}

// describeThreat renders the nearest-threat line for a server push:
// a structured threat formats as "{name} ({severity}) - {distance}km away",
// opaque text passes through, and absence yields a calm default.
func describeThreat(data contracts.SafetyScoreUpdateMessage) string {
	if t := data.NearestThreat; t != nil {
		d := strconv.FormatFloat(t.Distance, 'f', 1, 64)
		return fmt.Sprintf("%s (%s) - %skm away", t.Name, t.Severity, d)
	}
	if s := strings.TrimSpace(data.ThreatText); s != "" {
		return s
	}
	return "No immediate threats nearby"
}
