package service

import (
	"context"
	"sync"
	"time"

	"safetrail/internal/general/logger"
	"safetrail/internal/general/metrics"
	"safetrail/internal/general/rabbitmq"
	"safetrail/internal/general/websocket"
	"safetrail/internal/ports"

	"github.com/google/uuid"
)

// TouristHub is the websocket surface the gateway service pushes through.
type TouristHub interface {
	SendToTourist(ctx context.Context, touristID, event string, payload any) error
	Presences() []websocket.Presence
	IsTouristConnected(touristID string) bool
}

// Service orchestrates the gateway: it persists tourist pings, republishes
// them for downstream consumers, computes authoritative safety scores, and
// fans authority alerts out to targeted tourists.
type Service struct {
	log       *logger.Logger
	uow       ports.UnitOfWork
	locRepo   ports.LocationRepository
	zoneRepo  ports.ZoneRepository
	alertRepo ports.AlertRepository
	pub       *rabbitmq.Publisher
	rmq       *rabbitmq.Client
	hub       TouristHub
	met       *metrics.Metrics

	// last pushed score per tourist, for change detection
	scoreMu    sync.Mutex
	lastScores map[string]float64
}

func New(
	log *logger.Logger,
	uow ports.UnitOfWork,
	locRepo ports.LocationRepository,
	zoneRepo ports.ZoneRepository,
	alertRepo ports.AlertRepository,
	pub *rabbitmq.Publisher,
	rmq *rabbitmq.Client,
	met *metrics.Metrics,
) *Service {
	return &Service{
		log:        log,
		uow:        uow,
		locRepo:    locRepo,
		zoneRepo:   zoneRepo,
		alertRepo:  alertRepo,
		pub:        pub,
		rmq:        rmq,
		met:        met,
		lastScores: make(map[string]float64),
	}
}

// AttachHub is called after the websocket hub is constructed; hub and service
// reference each other.
func (s *Service) AttachHub(hub TouristHub) {
	s.hub = hub
}

// RunBackgroundConsumers starts the broker consumers. They stop when ctx is
// canceled; a dead channel is retried after a short pause.
func (s *Service) RunBackgroundConsumers(ctx context.Context, prefetch int) {
	go func() {
		for {
			if err := s.consumeAuthorityAlerts(ctx, prefetch); err != nil {
				s.log.Error(ctx, "alert_consumer_stopped", "authority alert consumer died, restarting", err, nil)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
}

func newCorrelationID() string {
	return uuid.NewString()
}
