package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/pcstyle/termsim/internal/errors"
	"github.com/pcstyle/termsim/internal/render"
	"github.com/pcstyle/termsim/internal/reveal"
	"github.com/pcstyle/termsim/internal/transcript"
	"github.com/pcstyle/termsim/internal/version"
)

const maxClassifyBody = 1 << 20

// ClassifyResponse is returned by POST /api/classify.
type ClassifyResponse struct {
	Command string                      `json:"command"`
	Lines   []transcript.Line           `json:"lines"`
	Stats   map[transcript.Category]int `json:"stats"`
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	initial := reveal.State{SourceText: s.config.Reveal.DemoText, CursorVisible: true}

	page := render.Page("termsim",
		render.TypingDemo(initial, s.config.Reveal.CursorGlyph),
		render.TerminalWith(s.Transcript(), s.renderOptions()),
	)

	templ.Handler(page).ServeHTTP(w, r)
}

// handleClassify classifies a transcript posted either as plain text (a
// transcript file, optionally starting with "$ command") or as JSON
// {"command": ..., "output": ...}.
func (s *PreviewServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxClassifyBody)

	var t transcript.Transcript
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var req struct {
			Command string  `json:"command"`
			Output  *string `json:"output"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.New(errors.KindInvalid, errors.ErrCodeInvalidFormat, "invalid JSON body"), http.StatusBadRequest)
			return
		}
		t.Command = strings.TrimSpace(req.Command)
		if req.Output != nil {
			t.Output = *req.Output
			t.HasOutput = true
		}
	} else {
		parsed, err := transcript.Parse(r.Body)
		if err != nil {
			s.writeError(w, r, errors.New(errors.KindInvalid, errors.ErrCodeReadFailed, "reading request body"), http.StatusBadRequest)
			return
		}
		t = parsed
	}

	lines := t.LinesWith(s.classifier)
	if lines == nil {
		lines = []transcript.Line{}
	}

	s.writeJSON(w, r, http.StatusOK, ClassifyResponse{
		Command: t.Command,
		Lines:   lines,
		Stats:   transcript.Stats(lines),
	})
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   info.Short(),
		"clients":   s.hub.Count(),
		"timestamp": s.clock.Now().UTC(),
	})
}

func (s *PreviewServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode response")
	}
}

func (s *PreviewServer) writeError(w http.ResponseWriter, r *http.Request, err *errors.TermsimError, status int) {
	s.errHandler.Handle(r.Context(), err)
	s.writeJSON(w, r, status, map[string]string{
		"error": err.Message,
		"code":  err.Code,
	})
}
