package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cricket-stream-scraper/internal/database/models"
	"cricket-stream-scraper/internal/utils"
	"cricket-stream-scraper/pkg/types"

	"github.com/sirupsen/logrus"
)

// Store is the read side of the stream history.
type Store interface {
	GetLinks(ctx context.Context, status string) ([]*models.StreamLink, error)
	GetLinkBySlot(ctx context.Context, slot string) (*models.StreamLink, error)
	GetRuns(ctx context.Context, limit int) ([]*models.ScrapeRun, error)
	GetStats(ctx context.Context) (map[string]interface{}, error)
	Ping(ctx context.Context) error
}

type Server struct {
	store  Store
	logger *logrus.Logger
	port   string
	now    func() time.Time
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Count   int         `json:"count,omitempty"`
}

func NewServer(store Store, logger *logrus.Logger, port string) *Server {
	return &Server{
		store:  store,
		logger: logger,
		port:   port,
		now:    time.Now,
	}
}

func (s *Server) Start() error {
	s.logger.Infof("Starting API server on port %s", s.port)
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// Handler returns the routed, CORS-wrapped API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.corsMiddleware(s.handleRoot))
	mux.HandleFunc("/api/links", s.corsMiddleware(s.handleLinks))
	mux.HandleFunc("/api/links/", s.corsMiddleware(s.handleLinkBySlot))
	mux.HandleFunc("/api/runs", s.corsMiddleware(s.handleRuns))
	mux.HandleFunc("/api/stats", s.corsMiddleware(s.handleStats))
	mux.HandleFunc("/api/export/csv", s.corsMiddleware(s.handleExportCSV))
	mux.HandleFunc("/api/health", s.corsMiddleware(s.handleHealth))
	mux.HandleFunc("/dashboard", s.corsMiddleware(s.handleDashboard))
	return mux
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodGet {
			s.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, "Not found", http.StatusNotFound)
		return
	}
	response := APIResponse{
		Success: true,
		Data: map[string]string{
			"message":   "Cricket Stream Scraper API",
			"version":   "1.0.0",
			"endpoints": "/api/links, /api/links/{slot}, /api/runs, /api/stats, /api/export/csv, /api/health, /dashboard",
		},
	}
	s.writeJSON(w, response)
}

func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(r.URL.Query().Get("status"))
	links, err := s.store.GetLinks(r.Context(), status)
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch links: %v", err), http.StatusInternalServerError)
		return
	}
	if links == nil {
		links = []*models.StreamLink{}
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    links,
		Count:   len(links),
	})
}

func (s *Server) handleLinkBySlot(w http.ResponseWriter, r *http.Request) {
	slot := strings.TrimPrefix(r.URL.Path, "/api/links/")
	if slot == "" || strings.Contains(slot, "/") {
		s.writeError(w, "Slot is required", http.StatusBadRequest)
		return
	}

	link, err := s.store.GetLinkBySlot(r.Context(), slot)
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch link: %v", err), http.StatusInternalServerError)
		return
	}
	if link == nil {
		s.writeError(w, fmt.Sprintf("No link for slot %s", slot), http.StatusNotFound)
		return
	}

	// ?format=record returns the realtime database document shape
	if r.URL.Query().Get("format") == "record" {
		rec := link.Record()
		rec.CreatedAtISO = utils.FormatISO(utils.FromMillis(rec.CreatedAt))
		s.writeJSON(w, APIResponse{Success: true, Data: map[string]types.StreamRecord{slot: rec}})
		return
	}

	s.writeJSON(w, APIResponse{Success: true, Data: link})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	runs, err := s.store.GetRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch runs: %v", err), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*models.ScrapeRun{}
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    runs,
		Count:   len(runs),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch stats: %v", err), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    stats,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	links, err := s.store.GetLinks(r.Context(), strings.ToUpper(r.URL.Query().Get("status")))
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch links for export: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=stream_links_%s.csv", s.now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	cw.Write([]string{"Slot", "Name", "Title", "Status", "Link", "Source URL", "Referer", "Origin", "Created At", "Last Checked"})
	for _, link := range links {
		cw.Write([]string{
			link.Slot,
			link.Name,
			link.Title,
			link.Status,
			link.Link,
			link.SourceURL,
			link.Headers[types.HeaderReferer],
			link.Headers[types.HeaderOrigin],
			utils.FormatTimestamp(utils.FromMillis(link.CreatedAtMs)),
			utils.FormatTimestamp(utils.FromMillis(link.LastCheckedMs)),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Errorf("Failed to write CSV export: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, "Database connection failed", http.StatusServiceUnavailable)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": s.now().Format(time.RFC3339),
			"database":  "connected",
		},
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(dashboardHTML))
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
	}
	json.NewEncoder(w).Encode(response)
}
