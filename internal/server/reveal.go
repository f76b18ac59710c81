package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pcstyle/termsim/internal/errors"
	"github.com/pcstyle/termsim/internal/reveal"
)

const maxRevealIntervalMs = 10000

// RevealFrame is one animator state sent to /ws/reveal clients.
type RevealFrame struct {
	Text     string `json:"text"`
	Revealed int    `json:"revealed"`
	Total    int    `json:"total"`
	Cursor   bool   `json:"cursor"`
	Frame    string `json:"frame"`
	Done     bool   `json:"done"`
}

// RevealRequest replaces the text of a running session. A message without a
// text field is ignored; an empty text restarts with nothing to reveal.
type RevealRequest struct {
	Text *string `json:"text"`
}

func newRevealFrame(state reveal.State, glyph string) RevealFrame {
	return RevealFrame{
		Text:     state.SourceText,
		Revealed: state.Revealed,
		Total:    state.Total(),
		Cursor:   state.CursorVisible,
		Frame:    state.Frame(glyph),
		Done:     state.Done(),
	}
}

// revealInterval reads the interval query parameter in milliseconds.
func (s *PreviewServer) revealInterval(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("interval")
	if raw == "" {
		return s.config.Reveal.Interval(), nil
	}

	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 || ms > maxRevealIntervalMs {
		return 0, errors.New(errors.KindInvalid, errors.ErrCodeInvalidInterval,
			"interval must be between 1 and 10000 milliseconds").With("interval", raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// handleReveal upgrades to a websocket that owns one animator for the life
// of the connection and streams a frame after every state change.
func (s *PreviewServer) handleReveal(w http.ResponseWriter, r *http.Request) {
	interval, err := s.revealInterval(r)
	if err != nil {
		s.errHandler.Handle(r.Context(), err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" {
		text = s.config.Reveal.DemoText
	}

	conn, sessionID, ok := s.accept(w, r)
	if !ok {
		return
	}
	defer conn.CloseNow()

	logger := s.logger.With("session", sessionID)
	glyph := s.config.Reveal.CursorGlyph

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// Coalesces bursts: the writer always sends the latest snapshot.
	changed := make(chan struct{}, 1)
	animator := reveal.New(
		reveal.WithClock(s.clock),
		reveal.WithInterval(interval),
		reveal.WithCursorGlyph(glyph),
		reveal.WithOnChange(func(reveal.State) {
			select {
			case changed <- struct{}{}:
			default:
			}
		}),
	)
	animator.Start(ctx, text)
	defer animator.Stop()

	logger.Debug(ctx, "Reveal session started", "interval", interval.String(), "runes", animator.Snapshot().Total())

	go func() {
		defer cancel()
		for {
			var req RevealRequest
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				return
			}
			if req.Text != nil {
				animator.SetText(*req.Text)
			}
		}
	}()

	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			logger.Debug(context.Background(), "Reveal session ended")
			return

		case <-changed:
			writeCtx, writeCancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, conn, newRevealFrame(animator.Snapshot(), glyph))
			writeCancel()
			if err != nil {
				logger.Warn(ctx, err, "Reveal frame write failed")
				return
			}

		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				return
			}
		}
	}
}
