package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

type channelStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status           string           `json:"status"`
	UptimeSeconds    int64            `json:"uptime_seconds"`
	BackendURL       string           `json:"backend_url"`
	BackendHealthy   bool             `json:"backend_healthy"`
	BackendCheckedAt string           `json:"backend_checked_at,omitempty"`
	Channel          channelStatus    `json:"channel"`
	Messages         map[string]int64 `json:"messages"`
}

// startStatusServer binds the status listener synchronously so a busy port fails
// startup, then serves /healthz and /readyz until Stop.
func (s *Service) startStatusServer(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Status.Host, strconv.Itoa(s.cfg.Status.Port))

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("start status server: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.status = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Status server failed", "error", err)
		}
	}()

	s.log.Info("Status server started", "address", listener.Addr().String())
	return nil
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

// handleReady reports ready while the channel is receiving. Bot service health is
// informational only.
func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	checkedAt := ""
	if !s.backendCheckedAt.IsZero() {
		checkedAt = s.backendCheckedAt.Format(time.RFC3339)
	}

	messages := make(map[string]int64, len(s.outcomeCounts))
	for eventType, count := range s.outcomeCounts {
		messages[string(eventType)] = count
	}

	return statusResponse{
		Status:           status,
		UptimeSeconds:    uptime,
		BackendURL:       s.cfg.Backend.URL,
		BackendHealthy:   s.backendHealthy,
		BackendCheckedAt: checkedAt,
		Channel: channelStatus{
			Name:    s.adapter.Name(),
			Running: s.channelRunning,
			Error:   s.channelErr,
		},
		Messages: messages,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelRunning
}
