// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/scout/internal/adapters/repository"
	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/scoring"
	"github.com/okian/scout/internal/domain/snapshot"
)

// MatchDependencies is the match surface of the service.
type MatchDependencies interface {
	Create(ctx context.Context, req service.CreateRequest) (service.View, error)
	List(ctx context.Context) []service.Summary
	Get(ctx context.Context, id string) (service.View, error)
	Remove(ctx context.Context, id string) error
	Execute(ctx context.Context, id string, cmd service.Command) (service.Result, error)
	Frame(ctx context.Context, id string) (model.Frame, error)

	Export(ctx context.Context, id string) (*snapshot.Record, error)
	Import(ctx context.Context, rec *snapshot.Record) (service.View, error)
	Save(ctx context.Context, id string, archive bool) (service.SaveResult, error)
	Load(ctx context.Context, key string) (service.View, error)
	Saved(ctx context.Context) ([]repository.Summary, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MatchDependencies
	LeaderboardDependencies
	RankDependencies
	StatsProvider
}

// FrameStreamer serves a websocket of display frames.
type FrameStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, matchID string, initial *model.Frame) error
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = repository.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchesHandler     *MatchesHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers. streamer may be nil,
// in which case the frame stream route answers 404.
func NewServer(deps Dependencies, streamer FrameStreamer, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		matchesHandler:     NewMatchesHandler(deps, streamer),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))

	h := s.matchesHandler
	mux.HandleFunc("POST /matches", MetricsMiddleware(h.HandleCreate, "matches"))
	mux.HandleFunc("GET /matches", MetricsMiddleware(h.HandleList, "matches"))
	mux.HandleFunc("POST /matches/import", MetricsMiddleware(h.HandleImport, "import"))
	mux.HandleFunc("GET /matches/{id}", MetricsMiddleware(h.HandleGet, "match"))
	mux.HandleFunc("DELETE /matches/{id}", MetricsMiddleware(h.HandleRemove, "match"))
	mux.HandleFunc("POST /matches/{id}/commands", MetricsMiddleware(h.HandleCommand, "commands"))
	mux.HandleFunc("GET /matches/{id}/snapshot", MetricsMiddleware(h.HandleExport, "snapshot"))
	mux.HandleFunc("POST /matches/{id}/save", MetricsMiddleware(h.HandleSave, "save"))
	mux.HandleFunc("GET /matches/{id}/ws", h.HandleStream)
	mux.HandleFunc("GET /snapshots", MetricsMiddleware(h.HandleSaved, "snapshots"))
	mux.HandleFunc("POST /snapshots/{key}/load", MetricsMiddleware(h.HandleLoad, "load"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a service error to its status and code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, snapshot.ErrMalformedSnapshot),
		errors.Is(err, service.ErrInvalidCommand),
		errors.Is(err, service.ErrUnknownCommand),
		errors.Is(err, match.ErrInvalidTeams),
		errors.Is(err, match.ErrInvalidClock),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, repository.ErrInvalidKey),
		errors.Is(err, repository.ErrInvalidTeam):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, service.ErrMatchNotFound),
		errors.Is(err, match.ErrUnknownRobot),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrSnapshotNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrConflict), service.IsPrecondition(err):
		return http.StatusConflict, "precondition_failed"
	case errors.Is(err, scoring.ErrDerivationInvariant):
		return http.StatusInternalServerError, "derivation_invariant"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
