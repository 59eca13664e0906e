package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"safetrail/internal/general/logger"
	"safetrail/internal/general/metrics"
	"safetrail/internal/general/websocket"
	"safetrail/internal/ports"
	"safetrail/internal/software/gateway/service"
)

// GatewayHTTPHandler adapts HTTP requests to the gateway service.
type GatewayHTTPHandler struct {
	svc      *service.Service
	log      *logger.Logger
	hub      *websocket.Hub
	zoneRepo ports.ZoneRepository
	uow      ports.UnitOfWork
	met      *metrics.Metrics
}

func NewGatewayHTTPHandler(
	svc *service.Service,
	log *logger.Logger,
	hub *websocket.Hub,
	zoneRepo ports.ZoneRepository,
	uow ports.UnitOfWork,
	met *metrics.Metrics,
) *GatewayHTTPHandler {
	return &GatewayHTTPHandler{svc: svc, log: log, hub: hub, zoneRepo: zoneRepo, uow: uow, met: met}
}

// RegisterRoutes mounts gateway endpoints on the provided mux.
func (handler *GatewayHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/tourist", handler.hub.ConnectTourist)
	mux.HandleFunc("GET /api/zones", handler.handleZones)
	mux.HandleFunc("GET /health", handler.handleHealth)
	mux.Handle("GET /metrics", handler.met.Handler())
}

// ----- general helpers -----

// jsonResponse encodes to a buffer first so status can still change on
// encode failure.
func (handler *GatewayHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.log.Error(ctx, "response_encode_failed", "failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *GatewayHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.log.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *GatewayHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.log.WithRequestID(ctx, reqID)
}

func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
