package service

import (
	"context"
	"sync"
	"testing"

	"safetrail/internal/domain/geo"
	"safetrail/internal/general/contracts"
	"safetrail/internal/general/logger"
	"safetrail/internal/general/metrics"
	"safetrail/internal/general/websocket"
)

type sentPush struct {
	touristID string
	event     string
}

type fakeHub struct {
	mu        sync.Mutex
	presences []websocket.Presence
	sent      []sentPush
	failFor   map[string]bool
}

func (h *fakeHub) SendToTourist(ctx context.Context, touristID, event string, payload any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failFor[touristID] {
		return context.DeadlineExceeded
	}
	h.sent = append(h.sent, sentPush{touristID: touristID, event: event})
	return nil
}

func (h *fakeHub) Presences() []websocket.Presence { return h.presences }

func (h *fakeHub) IsTouristConnected(touristID string) bool {
	for _, p := range h.presences {
		if p.TouristID == touristID {
			return true
		}
	}
	return false
}

func (h *fakeHub) deliveries() []sentPush {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sentPush(nil), h.sent...)
}

func newFanOutService(hub *fakeHub) *Service {
	return &Service{
		log:        logger.New("test"),
		hub:        hub,
		met:        metrics.New(),
		lastScores: make(map[string]float64),
	}
}

func presenceAt(id string, lat, lng float64) websocket.Presence {
	return websocket.Presence{TouristID: id, Location: geo.Coordinate{Lat: lat, Lng: lng}, HasFix: true}
}

func TestFanOutUntargetedReachesEveryone(t *testing.T) {
	hub := &fakeHub{presences: []websocket.Presence{
		presenceAt("t1", 28.61, 77.20),
		presenceAt("t2", 19.07, 72.87),
		{TouristID: "t3"}, // connected, no fix yet
	}}
	s := newFanOutService(hub)

	msg := &contracts.AuthorityAlertMessage{AlertID: "a1", Title: "Citywide advisory", Priority: "medium"}
	if got := s.fanOutAlert(context.Background(), msg); got != 3 {
		t.Errorf("delivered = %d, want 3", got)
	}
	for _, d := range hub.deliveries() {
		if d.event != contracts.EventAuthorityAlert {
			t.Errorf("event = %q, want authorityAlert", d.event)
		}
	}
}

func TestFanOutTargetedFiltersByArea(t *testing.T) {
	hub := &fakeHub{presences: []websocket.Presence{
		presenceAt("inside", 28.6139, 77.2090),
		presenceAt("outside", 28.7139, 77.2090), // ~11km north
		{TouristID: "nofix"},
	}}
	s := newFanOutService(hub)

	msg := &contracts.AuthorityAlertMessage{
		AlertID:    "a2",
		Title:      "Localized incident",
		Priority:   "high",
		TargetArea: &contracts.TargetArea{Lat: 28.6139, Lng: 77.2090, Radius: 5},
	}
	if got := s.fanOutAlert(context.Background(), msg); got != 1 {
		t.Fatalf("delivered = %d, want 1", got)
	}
	if sent := hub.deliveries(); len(sent) != 1 || sent[0].touristID != "inside" {
		t.Errorf("deliveries = %+v, want only the tourist inside the area", sent)
	}
}

func TestFanOutSkipsFailedPushes(t *testing.T) {
	hub := &fakeHub{
		presences: []websocket.Presence{
			presenceAt("t1", 28.61, 77.20),
			presenceAt("t2", 28.62, 77.21),
		},
		failFor: map[string]bool{"t1": true},
	}
	s := newFanOutService(hub)

	msg := &contracts.AuthorityAlertMessage{AlertID: "a3", Title: "Advisory", Priority: "low"}
	if got := s.fanOutAlert(context.Background(), msg); got != 1 {
		t.Errorf("delivered = %d, want 1 after one failed push", got)
	}
}
