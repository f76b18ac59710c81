package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pcstyle/termsim/internal/config"
	"github.com/pcstyle/termsim/internal/errors"
	"github.com/pcstyle/termsim/internal/render"
	"github.com/pcstyle/termsim/internal/reveal"
)

var (
	revealFlags *StandardFlags
	revealHold  time.Duration
)

var revealCmd = &cobra.Command{
	Use:     "reveal [text]",
	Aliases: []string{"r"},
	Short:   "Play the typing animation in the terminal",
	Long: `Reveal text one character at a time with a blinking cursor, redrawing the
current line in place.

Without text the configured demo text is used.

Examples:
  termsim reveal "hello world"
  termsim reveal --interval 20 --hold 3s "fast typist"`,
	RunE: runReveal,
}

func init() {
	rootCmd.AddCommand(revealCmd)

	revealFlags = AddStandardFlags(revealCmd, "reveal")
	revealCmd.Flags().DurationVar(&revealHold, "hold", 2*time.Second, "Keep the cursor blinking this long after the text is revealed")

	viper.BindPFlag("reveal.interval_ms", revealCmd.Flags().Lookup("interval"))
}

func runReveal(cmd *cobra.Command, args []string) error {
	if err := revealFlags.ValidateFlags(); err != nil {
		return err
	}
	if revealHold < 0 {
		return errors.New(errors.KindInvalid, errors.ErrCodeInvalidInterval, "--hold must not be negative")
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(errors.KindConfig, errors.ErrCodeConfigInvalid, "failed to load configuration", err)
	}

	text := strings.Join(args, " ")
	if text == "" {
		text = cfg.Reveal.DemoText
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return playReveal(ctx, cmd.OutOrStdout(), cfg, text, revealHold)
}

// playReveal draws every animator state to w until the text is revealed and
// hold has elapsed, or ctx is cancelled.
func playReveal(ctx context.Context, w io.Writer, cfg *config.Config, text string, hold time.Duration) error {
	var (
		mu       sync.Mutex
		writeErr error
		finished bool
		doneOnce sync.Once
	)
	done := make(chan struct{})
	glyph := cfg.Reveal.CursorGlyph

	animator := reveal.New(
		reveal.WithInterval(cfg.Reveal.Interval()),
		reveal.WithCursorGlyph(glyph),
		reveal.WithOnChange(func(state reveal.State) {
			mu.Lock()
			if !finished && writeErr == nil {
				_, writeErr = io.WriteString(w, render.Frame(state.Frame(glyph)))
			}
			mu.Unlock()

			if state.Done() {
				doneOnce.Do(func() { close(done) })
			}
		}),
	)
	animator.Start(ctx, text)
	defer animator.Stop()

	select {
	case <-done:
		timer := time.NewTimer(hold)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	case <-ctx.Done():
	}
	animator.Stop()

	mu.Lock()
	defer mu.Unlock()
	finished = true
	if writeErr != nil {
		return errors.Wrap(errors.KindIO, errors.ErrCodeWriteFailed, "writing frame", writeErr)
	}

	// Leave the full text on screen without the cursor.
	_, err := fmt.Fprintln(w, render.Frame(animator.Visible()))
	return err
}
