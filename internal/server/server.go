// Package server implements the termsim preview server: an HTML page with
// the typing demo and terminal card, a classify API, a websocket stream of
// reveal frames and a websocket hub that pushes the re-classified transcript
// whenever its file changes.
package server

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/pcstyle/termsim/internal/config"
	"github.com/pcstyle/termsim/internal/errors"
	"github.com/pcstyle/termsim/internal/logging"
	"github.com/pcstyle/termsim/internal/render"
	"github.com/pcstyle/termsim/internal/transcript"
	"github.com/pcstyle/termsim/internal/watcher"
)

//go:embed default_transcript.txt
var defaultTranscript string

// PreviewServer serves the preview page and its live streams.
type PreviewServer struct {
	config     *config.Config
	logger     logging.Logger
	errHandler *errors.ErrorHandler
	clock      clockz.Clock
	classifier *transcript.Classifier
	pingPeriod time.Duration

	httpServer  *http.Server
	serverMutex sync.RWMutex

	hub     *Hub
	watcher *watcher.FileWatcher

	current      transcript.Transcript
	currentMutex sync.RWMutex

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// Option configures a PreviewServer.
type Option func(*PreviewServer)

// WithLogger sets the server logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *PreviewServer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock passed to every reveal animator.
func WithClock(clock clockz.Clock) Option {
	return func(s *PreviewServer) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPingPeriod sets how often websocket peers are pinged.
func WithPingPeriod(d time.Duration) Option {
	return func(s *PreviewServer) {
		if d > 0 {
			s.pingPeriod = d
		}
	}
}

// New creates a preview server and loads the configured transcript. Without
// a transcript path the built-in typesim session is shown.
func New(cfg *config.Config, opts ...Option) (*PreviewServer, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &PreviewServer{
		config:     cfg,
		logger:     logging.NewNopLogger(),
		clock:      clockz.RealClock,
		classifier: cfg.Transcript.Classifier(),
		pingPeriod: defaultPingPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("server")
	s.errHandler = errors.NewErrorHandler(s.logger)

	if cfg.Transcript.Path == "" {
		s.current = transcript.ParseString(defaultTranscript)
	} else if err := s.Reload(); err != nil {
		return nil, err
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.hub = NewHub(s.logger)
	go s.hub.Run(s.ctx)

	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/classify", s.handleClassify)
	mux.HandleFunc("GET /ws/reveal", s.handleReveal)
	mux.HandleFunc("GET /ws/transcript", s.handleTranscript)

	return s.addMiddleware(mux)
}

// Start watches the transcript file and serves until Shutdown.
func (s *PreviewServer) Start(ctx context.Context) error {
	if err := s.setupFileWatcher(ctx); err != nil {
		return err
	}

	addr := s.config.Server.Addr()

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Preview server listening", "addr", "http://"+addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(errors.KindNetwork, errors.ErrCodeServerFailed, "server error", err).With("addr", addr)
	}

	return nil
}

func (s *PreviewServer) setupFileWatcher(ctx context.Context) error {
	if s.config.Transcript.Path == "" {
		return nil
	}

	fw, err := watcher.NewFileWatcher(s.config.Watch.Debounce(), s.logger)
	if err != nil {
		return err
	}
	if err := fw.WatchFile(s.config.Transcript.Path); err != nil {
		fw.Stop()
		return err
	}
	fw.AddHandler(s.handleFileChange)

	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}

	s.serverMutex.Lock()
	s.watcher = fw
	s.serverMutex.Unlock()
	return nil
}

func (s *PreviewServer) handleFileChange(events []watcher.ChangeEvent) error {
	s.logger.Info(s.ctx, "Transcript changed", "events", watcher.Describe(events))

	for _, event := range events {
		if event.Type == watcher.EventTypeDeleted {
			// Keep serving the last good transcript until the file comes back.
			return nil
		}
	}

	return s.Reload()
}

// Reload re-reads the transcript file and pushes it to connected clients.
func (s *PreviewServer) Reload() error {
	path := s.config.Transcript.Path
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.ErrFileNotFound(path, err).WithComponent("server")
	}
	defer f.Close()

	t, err := transcript.Parse(f)
	if err != nil {
		return errors.ErrReadFailed(path, err).WithComponent("server")
	}

	s.currentMutex.Lock()
	s.current = t
	s.currentMutex.Unlock()

	if s.hub != nil {
		msg, err := s.transcriptMessage(t)
		if err != nil {
			return err
		}
		s.hub.Broadcast(msg)
	}

	return nil
}

// Transcript returns the transcript currently served.
func (s *PreviewServer) Transcript() transcript.Transcript {
	s.currentMutex.RLock()
	defer s.currentMutex.RUnlock()
	return s.current
}

// TranscriptMessage is pushed to /ws/transcript clients.
type TranscriptMessage struct {
	Type      string            `json:"type"`
	Command   string            `json:"command"`
	Lines     []transcript.Line `json:"lines"`
	HTML      string            `json:"html"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *PreviewServer) transcriptMessage(t transcript.Transcript) (TranscriptMessage, error) {
	var buf bytes.Buffer
	if err := render.TerminalWith(t, s.renderOptions()).Render(s.ctx, &buf); err != nil {
		return TranscriptMessage{}, errors.Wrap(errors.KindInternal, errors.ErrCodeInternalError, "rendering transcript", err)
	}

	lines := t.LinesWith(s.classifier)
	if lines == nil {
		lines = []transcript.Line{}
	}

	return TranscriptMessage{
		Type:      "transcript",
		Command:   t.Command,
		Lines:     lines,
		HTML:      buf.String(),
		Timestamp: s.clock.Now().UTC(),
	}, nil
}

// renderOptions carries the configured prompt glyph and vocabulary to the
// HTML terminal.
func (s *PreviewServer) renderOptions() render.Options {
	return render.Options{
		PromptGlyph: s.config.Transcript.PromptGlyph,
		Classifier:  s.classifier,
	}
}

func (s *PreviewServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}

// isAllowedOrigin checks the configured allowed origins list.
func (s *PreviewServer) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Shutdown closes every websocket, stops the watcher and drains the HTTP
// server. Only the first call does any work.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.RLock()
		fw := s.watcher
		server := s.httpServer
		s.serverMutex.RUnlock()

		if fw != nil {
			if err := fw.Stop(); err != nil {
				s.logger.Warn(ctx, err, "Stopping file watcher failed")
			}
		}

		// Cancels the hub and every reveal session.
		s.cancel()

		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				shutdownErr = fmt.Errorf("shutting down http server: %w", err)
			}
		}
	})

	return shutdownErr
}
