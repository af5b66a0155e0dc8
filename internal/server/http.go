// Package server exposes the engine's service layer over a thin HTTP
// surface. Handlers only parse, delegate, and encode; all behavior
// lives in the service packages.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sparkmatch/engine/internal/app"
	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/config"
	"github.com/sparkmatch/engine/internal/service/discover"
	"github.com/sparkmatch/engine/internal/service/swipes"
)

type Server struct {
	log      *slog.Logger
	swipes   *swipes.Service
	discover *discover.Service
}

func New(appCtx *app.AppContext, sw *swipes.Service, disc *discover.Service) *Server {
	return &Server{
		log:      appCtx.Logger.With("subsystem", "http"),
		swipes:   sw,
		discover: disc,
	}
}

// Router mounts every engine route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/candidates", s.handleCandidates)
		r.Get("/daily-pick", s.handleDailyPick)
		r.Post("/daily-pick/viewed", s.handlePickViewed)
		r.Get("/standouts", s.handleStandouts)
		r.Get("/matches", s.handleMatches)
		r.Get("/limits", s.handleLimits)
		r.Get("/undoable", s.handleCanUndo)
		r.Post("/undo", s.handleUndo)
	})

	r.Post("/swipes", s.handleSwipe)

	r.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/quality", s.handleQuality)
		r.Post("/end", s.handleEnd)
	})

	return r
}

// Start boots the HTTP server.
func Start(cfg *config.Config, s *Server) error {
	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	s.log.Info("starting http server", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	candidates, err := s.discover.FindCandidates(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ids := make([]uint64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"candidate_ids": ids})
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID   uint64 `json:"actor_id"`
		TargetID  uint64 `json:"target_id"`
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Validationf("invalid body: %v", err))
		return
	}
	result, err := s.swipes.Process(r.Context(), req.ActorID, req.TargetID, req.Direction)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDailyPick(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pick, err := s.discover.DailyPick(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if pick == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"pick": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pick": pick})
}

func (s *Server) handlePickViewed(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.discover.MarkDailyPickViewed(r.Context(), userID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStandouts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.discover.Standouts(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var token *string
	if t := r.URL.Query().Get("page_token"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	matches, next, err := s.swipes.ListMatches(r.Context(), userID, token, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]any{"matches": matches}
	if next != nil {
		resp["next_page_token"] = *next
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	remaining, err := s.swipes.RemainingLimits(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"remaining": remaining})
}

func (s *Server) handleCanUndo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ok, err := s.swipes.CanUndo(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"can_undo": ok})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.swipes.Undo(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	viewerID, err := strconv.ParseUint(r.URL.Query().Get("viewer"), 10, 64)
	if err != nil {
		s.writeError(w, apperr.Validationf("viewer must be a valid uint64"))
		return
	}
	quality, err := s.discover.ComputeQuality(r.Context(), matchID, viewerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quality)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	var req struct {
		ByUser  uint64 `json:"by_user"`
		ToState string `json:"to_state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Validationf("invalid body: %v", err))
		return
	}
	match, err := s.swipes.End(r.Context(), matchID, req.ByUser, req.ToState)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, match)
}

func userIDParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		return 0, apperr.Validationf("userID must be a valid uint64")
	}
	return id, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		s.log.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
