package registry

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/model"
)

// Logger matches the service-layer logging interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server exposes the cache registry over HTTP. Authentication and role
// checks belong to the fronting layer; callers are identified by the
// X-User-ID header it injects.
type Server struct {
	Tracker     Tracker
	Configs     ConfigStore
	Logger      Logger
	CorsOrigins []string
}

// Router builds the chi router for the registry API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if len(s.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/cache", func(cache chi.Router) {
			cache.Post("/track", s.TrackResource)
			cache.Delete("/track/{resourceID}", s.UntrackResource)
			cache.Get("/users/{userID}", s.UserReport)
			cache.Get("/resources/{resourceID}", s.ResourceReport)
			cache.Get("/trips/{tripID}", s.TripReport)
			cache.Delete("/", s.EvictRecords)
		})
		api.Route("/maps", func(maps chi.Router) {
			maps.Put("/config/{tripID}", s.PutMapConfig)
			maps.Get("/config/{tripID}", s.GetMapConfig)
		})
	})

	return r
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

type TrackRequest struct {
	ResourceID   string `json:"resource_id"`
	ResourceType string `json:"resource_type"`
	TripID       string `json:"trip_id"`
	CacheSize    int64  `json:"cache_size"`
}

func (s *Server) TrackResource(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.ResourceID == "" {
		WriteError(w, http.StatusBadRequest, "resource_id is required")
		return
	}

	rec := &model.CacheStatusRecord{
		UserID:       userID,
		ResourceID:   req.ResourceID,
		ResourceType: req.ResourceType,
		TripID:       req.TripID,
		CacheSize:    req.CacheSize,
	}
	if err := s.Tracker.Track(r.Context(), rec); err != nil {
		s.Logger.Error("track failed", "user", userID, "resource", req.ResourceID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) UntrackResource(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	resourceID := chi.URLParam(r, "resourceID")
	if err := s.Tracker.Untrack(r.Context(), userID, resourceID); err != nil {
		s.Logger.Error("untrack failed", "user", userID, "resource", resourceID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type UserReportResponse struct {
	Totals  *UserTotals                `json:"totals"`
	Records []*model.CacheStatusRecord `json:"records"`
}

func (s *Server) UserReport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	totals, err := s.Tracker.UserTotals(r.Context(), userID)
	if err != nil {
		s.Logger.Error("user totals failed", "user", userID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	records, err := s.Tracker.ListByUser(r.Context(), userID)
	if err != nil {
		s.Logger.Error("user records failed", "user", userID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, UserReportResponse{Totals: totals, Records: records})
}

func (s *Server) ResourceReport(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceID")
	totals, err := s.Tracker.ResourceTotals(r.Context(), resourceID)
	if err != nil {
		s.Logger.Error("resource totals failed", "resource", resourceID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, totals)
}

func (s *Server) TripReport(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	totals, err := s.Tracker.TripTotals(r.Context(), tripID)
	if err != nil {
		s.Logger.Error("trip totals failed", "trip", tripID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, totals)
}

type EvictResponse struct {
	Evicted int64 `json:"evicted"`
}

func (s *Server) EvictRecords(w http.ResponseWriter, r *http.Request) {
	var filter EvictFilter
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid payload")
			return
		}
	}

	n, err := s.Tracker.Evict(r.Context(), filter)
	if err != nil {
		s.Logger.Error("evict failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.Logger.Info("registry rows evicted", "count", n, "user", filter.UserID, "resource", filter.ResourceID, "trip", filter.TripID)
	WriteJSON(w, http.StatusOK, EvictResponse{Evicted: n})
}

func (s *Server) PutMapConfig(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	var cfg model.MapConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	cfg.TripID = tripID

	if err := s.Configs.PutMapConfig(r.Context(), &cfg); err != nil {
		s.Logger.Error("map config upsert failed", "trip", tripID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetMapConfig(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	cfg, err := s.Configs.GetMapConfig(r.Context(), tripID)
	if err != nil {
		s.Logger.Error("map config lookup failed", "trip", tripID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if cfg == nil {
		WriteError(w, http.StatusNotFound, "No map config for trip")
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}
