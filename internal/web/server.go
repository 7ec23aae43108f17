package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
	"github.com/jaragunde/picture-collection-tools/internal/app"
	"github.com/jaragunde/picture-collection-tools/internal/catalog"
	"github.com/jaragunde/picture-collection-tools/internal/config"
	"github.com/jaragunde/picture-collection-tools/internal/logger"
	"github.com/jaragunde/picture-collection-tools/internal/statistics"
)

type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex

	// Current scan state
	operationMutex sync.RWMutex
	isRunning      bool
	currentRoot    string
	currentStats   *statistics.Statistics
	lastError      string

	// scanCtx is cancelled by Stop.
	scanCtx    context.Context
	cancelScan context.CancelFunc
	scanDone   sync.WaitGroup
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ScanRequest struct {
	Directory string `json:"directory"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		scanCtx:    ctx,
		cancelScan: cancel,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/series", s.handleSeries).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop cancels a running scan, waits for it to finish and shuts the HTTP
// server down.
func (s *Server) Stop(ctx context.Context) error {
	// Scans are claimed under operationMutex, so none starts after this.
	s.operationMutex.Lock()
	s.cancelScan()
	s.operationMutex.Unlock()

	s.scanDone.Wait()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Running reports whether a scan is in progress.
func (s *Server) Running() bool {
	s.operationMutex.RLock()
	defer s.operationMutex.RUnlock()
	return s.isRunning
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	running := s.isRunning
	root := s.currentRoot
	stats := s.currentStats
	lastError := s.lastError
	s.operationMutex.RUnlock()

	var statsData interface{}
	if stats != nil {
		statsData = map[string]interface{}{
			"summary": stats.GetSummary(),
			"files":   stats.Snapshot(),
		}
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":    running,
			"directory":  root,
			"statistics": statsData,
			"last_error": lastError,
		},
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	root, err := config.ResolveRoot(req.Directory)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Check and claim under one lock.
	s.operationMutex.Lock()
	if s.scanCtx.Err() != nil {
		s.operationMutex.Unlock()
		s.writeError(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	if s.isRunning {
		s.operationMutex.Unlock()
		s.writeError(w, "Scan already in progress", http.StatusConflict)
		return
	}
	s.isRunning = true
	s.currentRoot = root
	s.currentStats = nil
	s.lastError = ""
	s.scanDone.Add(1)
	s.operationMutex.Unlock()

	go s.runScanAsync(root)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Scan started",
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	root, err := config.ResolveRoot(q.Get("directory"))
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	groupByParam := q.Get("group_by")
	if groupByParam == "" {
		groupByParam = s.cfg.Analytics.GroupBy
	}
	groupBy, err := aggregate.ParseGroupBy(groupByParam)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	before, err := config.ParseDateFilter("date_before", q.Get("date_before"))
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	after, err := config.ParseDateFilter("date_after", q.Get("date_after"))
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	splitByDir := s.cfg.Analytics.SplitByDir
	if v := q.Get("split_by_dir"); v != "" {
		if splitByDir, err = strconv.ParseBool(v); err != nil {
			s.writeError(w, "Invalid split_by_dir value", http.StatusBadRequest)
			return
		}
	}

	series, err := app.LoadSeries(r.Context(), root, aggregate.Options{
		GroupBy:    groupBy,
		Before:     before,
		After:      after,
		SplitByDir: splitByDir,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrCatalogNotFound) {
			status = http.StatusNotFound
		}
		logger.WithRoot(s.log, root).WithError(err).Warn("Series request failed")
		s.writeError(w, err.Error(), status)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    series,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	// Keep connection alive
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (s *Server) runScanAsync(root string) {
	defer s.scanDone.Done()

	s.broadcastWSMessage("scan_started", map[string]interface{}{
		"directory": root,
	})

	progress := func(indexed int64) {
		s.broadcastWSMessage("scan_progress", map[string]interface{}{
			"directory": root,
			"indexed":   indexed,
		})
	}

	stats, err := app.Index(s.scanCtx, s.cfg, s.log, root, progress)

	s.operationMutex.Lock()
	s.isRunning = false
	s.currentStats = stats
	if err != nil {
		s.lastError = err.Error()
	}
	s.operationMutex.Unlock()

	if err != nil {
		logger.WithRoot(s.log, root).WithError(err).Error("Scan failed")
		s.broadcastWSMessage("scan_error", map[string]interface{}{
			"directory": root,
			"error":     err.Error(),
		})
		return
	}

	s.broadcastWSMessage("scan_completed", map[string]interface{}{
		"directory":  root,
		"statistics": stats.Snapshot(),
	})
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for conn := range s.wsClients {
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
