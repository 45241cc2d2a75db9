package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tgrelay/pkg/bus"
	"tgrelay/pkg/channel"
	"tgrelay/pkg/config"
)

const eventBufferSize = 256

// Prober reports whether the bot service is reachable right now.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Service owns relay startup and shutdown: probe the bot service, attach the
// dispatcher, start receiving, and stop receiving again.
type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	prober     Prober
	adapter    channel.Adapter
	bus        *bus.MessageBus
	dispatcher *Dispatcher

	mu               sync.RWMutex
	started          bool
	startedAt        time.Time
	backendHealthy   bool
	backendCheckedAt time.Time
	channelRunning   bool
	channelErr       string
	outcomeCounts    map[bus.EventType]int64

	cancel      context.CancelFunc
	adapterDone chan struct{}
	errCh       chan error
	stopOnce    sync.Once
	status      *http.Server
}

func NewService(cfg *config.Config, sender Sender, prober Prober, adapter channel.Adapter, replier channel.Replier, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if prober == nil {
		return nil, errors.New("health prober is required")
	}
	if adapter == nil {
		return nil, errors.New("channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	mb := bus.NewMessageBus()
	dispatcher, err := NewDispatcher(sender, replier, mb, log)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "relay.service"),
		prober:        prober,
		adapter:       adapter,
		bus:           mb,
		dispatcher:    dispatcher,
		outcomeCounts: make(map[bus.EventType]int64),
		adapterDone:   make(chan struct{}),
		errCh:         make(chan error, 1),
	}, nil
}

// Start probes the bot service, then begins dispatching and receiving. A failed
// probe is logged and does not stop startup.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("relay already started")
	}
	s.started = true
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	s.log.Info("Checking bot service health", "url", s.cfg.Backend.URL)
	healthy := s.prober.Probe(ctx)
	s.setBackendHealth(healthy)
	if !healthy {
		s.log.Warn("Bot service is not responding; the relay will start anyway, but messages may fail")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.cfg.Status.Enabled {
		if err := s.startStatusServer(runCtx); err != nil {
			cancel()
			close(s.adapterDone)
			s.bus.Close()
			return err
		}
	}

	events, _ := s.bus.SubscribeEvents(runCtx, eventBufferSize)
	go s.countOutcomes(events)

	go s.dispatcher.Run(runCtx)

	s.setChannelState(true, nil)
	go func() {
		defer close(s.adapterDone)

		err := s.adapter.Run(runCtx, s.bus)
		s.setChannelState(false, err)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.errCh <- fmt.Errorf("run %s channel: %w", s.adapter.Name(), err)
		}
	}()

	s.log.Info("Relay started", "channel", s.adapter.Name(), "backend_healthy", healthy)
	return nil
}

// Errors reports a channel that stopped on its own.
func (s *Service) Errors() <-chan error {
	return s.errCh
}

// Stop stops receiving new messages and returns once the channel has stopped.
// In-flight bot service calls are neither awaited nor canceled. Calling Stop more
// than once, or before Start, is safe.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.mu.RLock()
		started := s.started
		cancel := s.cancel
		status := s.status
		s.mu.RUnlock()

		if cancel != nil {
			cancel()
		}
		if started {
			<-s.adapterDone
		}
		s.bus.Close()

		if status != nil {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := status.Shutdown(shutdownCtx); err != nil {
				s.log.Warn("Status server shutdown failed", "error", err)
			}
		}

		s.log.Info("Relay stopped")
	})
}

func (s *Service) countOutcomes(events <-chan bus.Event) {
	for event := range events {
		s.mu.Lock()
		s.outcomeCounts[event.Type]++
		s.mu.Unlock()
	}
}

func (s *Service) setBackendHealth(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backendHealthy = healthy
	s.backendCheckedAt = time.Now().UTC()
}

func (s *Service) setChannelState(running bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelRunning = running
	s.channelErr = ""
	if err != nil {
		s.channelErr = err.Error()
	}
}
