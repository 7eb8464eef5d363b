// Package server exposes the views of the App over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"beermap/internal/mapsync"
	"beermap/internal/models"
	"beermap/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"
)

// Views is the view controller surface the API serves.
type Views interface {
	Home() (view.Home, error)
	Search(query string) (view.Home, error)
	List() (view.List, error)
	Categories() ([]view.CategoryGroup, error)
	Images() ([]models.Shop, error)
	About() view.About
	Events() (view.Events, error)
	EventDetail(index int) (view.EventDetail, error)
	SelectShop(index int) (models.Shop, error)
	ClearSelection()
	Map() (mapsync.Scene, bool)
	Features() (*geojson.FeatureCollection, error)
	Reload(ctx context.Context, feed string) error
}

type Handler struct {
	views   Views
	log     *zap.Logger
	timeout time.Duration
}

func NewHandler(views Views, log *zap.Logger, timeout time.Duration) *Handler {
	return &Handler{views: views, log: log, timeout: timeout}
}

// Router wires the API routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	if h.timeout > 0 {
		r.Use(middleware.Timeout(h.timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/home", h.handleHome)
		r.Get("/list", h.handleList)
		r.Get("/category", h.handleCategory)
		r.Get("/images", h.handleImages)
		r.Get("/about", h.handleAbout)
		r.Get("/events", h.handleEvents)
		r.Get("/events/{index}", h.handleEventDetail)
		r.Post("/selection/{index}", h.handleSelect)
		r.Delete("/selection", h.handleClearSelection)
		r.Get("/map", h.handleMap)
		r.Get("/shops.geojson", h.handleGeoJSON)
		r.Post("/reload", h.handleReload)
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	var (
		home view.Home
		err  error
	)
	if q := r.URL.Query(); q.Has("q") {
		home, err = h.views.Search(q.Get("q"))
	} else {
		home, err = h.views.Home()
	}
	h.respond(w, home, err)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	list, err := h.views.List()
	h.respond(w, list, err)
}

func (h *Handler) handleCategory(w http.ResponseWriter, _ *http.Request) {
	groups, err := h.views.Categories()
	h.respond(w, groups, err)
}

func (h *Handler) handleImages(w http.ResponseWriter, _ *http.Request) {
	shops, err := h.views.Images()
	h.respond(w, shops, err)
}

func (h *Handler) handleAbout(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.views.About())
}

func (h *Handler) handleEvents(w http.ResponseWriter, _ *http.Request) {
	events, err := h.views.Events()
	h.respond(w, events, err)
}

func (h *Handler) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	index, ok := h.indexParam(w, r)
	if !ok {
		return
	}
	detail, err := h.views.EventDetail(index)
	h.respond(w, detail, err)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, ok := h.indexParam(w, r)
	if !ok {
		return
	}
	shop, err := h.views.SelectShop(index)
	h.respond(w, shop, err)
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	h.views.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMap(w http.ResponseWriter, _ *http.Request) {
	scene, ok := h.views.Map()
	if !ok {
		h.writeError(w, http.StatusServiceUnavailable, "loading", view.LoadingMessage)
		return
	}
	h.writeJSON(w, http.StatusOK, scene)
}

func (h *Handler) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	fc, err := h.views.Features()
	if err != nil {
		h.respondError(w, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		h.log.Error("encode geojson", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type reloadRequest struct {
	Feed string `json:"feed"`
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	var req reloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid reload request")
		return
	}
	switch req.Feed {
	case "", "shops", "events":
	default:
		h.writeError(w, http.StatusBadRequest, "validation_failed", "unknown feed")
		return
	}
	// A failed reload is reported by the views it affects.
	if err := h.views.Reload(r.Context(), req.Feed); err != nil {
		h.log.Warn("reload failed", zap.String("feed", req.Feed), zap.Error(err))
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid index")
		return 0, false
	}
	return index, true
}

func (h *Handler) respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var ue *view.UnavailableError
	switch {
	case errors.Is(err, view.ErrLoading):
		h.writeError(w, http.StatusServiceUnavailable, "loading", view.LoadingMessage)
	case errors.As(err, &ue):
		h.writeError(w, http.StatusBadGateway, "unavailable", ue.Message)
	case errors.Is(err, view.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "not found")
	default:
		h.log.Error("view failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, errorBody{Error: code, Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("write response", zap.Error(err))
	}
}

// Server runs the API until its context is done.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

func New(addr string, handler http.Handler, log *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is canceled and then shuts down, waiting up to
// shutdownTimeout for open requests.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}
