// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ProbePath is the cheap backend collection fetched to prove reachability.
const ProbePath = apiclient.PathRoles

// Pinger is the slice of *mongo.Client the check uses.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	API   *apiclient.Client
	Mongo Pinger // nil when no audit database is configured
	Log   *zap.Logger
}

// NewHandler constructs a health Handler. mongo may be nil.
func NewHandler(api *apiclient.Client, mongo Pinger, logger *zap.Logger) *Handler {
	return &Handler{API: api, Mongo: mongo, Log: logger}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "backend":"reachable", "database":"connected" }
//
// The backend answering with an application error still counts as
// reachable. A transport failure or a failed Mongo ping gives 503 with
// "status":"error".
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Backend: "reachable", Database: "disabled"}

	res := h.API.Call(ctx, http.MethodGet, ProbePath, nil)
	if !res.Success && res.Transport {
		h.Log.Error("health-check: backend unreachable", zap.String("message", res.Message))
		resp.Status = "error"
		resp.Backend = "unreachable"
		resp.Message = "Backend unavailable"
	}

	if h.Mongo != nil {
		resp.Database = "connected"
		if err := h.Mongo.Ping(ctx, readpref.Primary()); err != nil {
			h.Log.Error("health-check: mongo ping failed", zap.Error(err))
			resp.Status = "error"
			resp.Database = "disconnected"
			if resp.Message == "" {
				resp.Message = "Database unavailable"
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
