package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pcstyle/termsim/internal/config"
	"github.com/pcstyle/termsim/internal/errors"
	"github.com/pcstyle/termsim/internal/logging"
	"github.com/pcstyle/termsim/internal/render"
	"github.com/pcstyle/termsim/internal/transcript"
	"github.com/pcstyle/termsim/internal/watcher"
)

var (
	classifyFlags   *StandardFlags
	classifyCommand string
	classifyWatch   bool
)

var classifyCmd = &cobra.Command{
	Use:     "classify [file|-]",
	Aliases: []string{"c"},
	Short:   "Classify and paint a terminal transcript",
	Long: `Classify every line of a captured terminal transcript and print it.

A transcript file may start with a "$ <command>" line; the rest is output.
Without a file, or with "-", the transcript is read from stdin. Colors are
disabled when stdout is not a terminal or NO_COLOR is set.

Examples:
  termsim classify demo.txt              # Painted terminal output
  termsim classify -f table demo.txt     # Category per line with totals
  typesim --help | termsim classify -f json --command "typesim --help"
  termsim classify --watch demo.txt      # Repaint on every save`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyFlags = AddStandardFlags(classifyCmd, "output")
	classifyCmd.Flags().StringVar(&classifyCommand, "command", "", "Override the transcript command line")
	classifyCmd.Flags().BoolVarP(&classifyWatch, "watch", "w", false, "Re-classify when the file changes")

	AddFlagValidation(classifyCmd, "format", ValidateFormat)
	viper.BindPFlag("transcript.no_color", classifyCmd.Flags().Lookup("no-color"))
}

func runClassify(cmd *cobra.Command, args []string) error {
	if err := classifyFlags.ValidateFlags(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(errors.KindConfig, errors.ErrCodeConfigInvalid, "failed to load configuration", err)
	}
	logger := newLogger(cfg).WithComponent("classify")

	path := ""
	if len(args) == 1 && args[0] != "-" {
		path = args[0]
	}

	out := cmd.OutOrStdout()
	opts := render.Options{
		NoColor:     cfg.Transcript.NoColor || classifyFlags.NoColor || !render.ColorEnabled(out),
		PromptGlyph: cfg.Transcript.PromptGlyph,
		Classifier:  cfg.Transcript.Classifier(),
	}

	classifyOnce := func() error {
		t, err := readTranscript(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		if classifyCommand != "" {
			t.Command = classifyCommand
		}

		op := logging.StartOperation(logger, "classify")
		defer op.End(cmd.Context(), "lines", len(t.LinesWith(opts.Classifier)), "path", path)

		return writeTranscript(out, t, classifyFlags.Format, opts)
	}

	if err := classifyOnce(); err != nil {
		return err
	}

	if !classifyWatch {
		return nil
	}
	if path == "" {
		return errors.New(errors.KindInvalid, errors.ErrCodeValidationFailed, "--watch needs a transcript file, not stdin")
	}

	return watchTranscript(cmd.Context(), cfg, logger, path, classifyOnce)
}

// readTranscript reads path, or r when path is empty.
func readTranscript(r io.Reader, path string) (transcript.Transcript, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return transcript.Transcript{}, errors.ErrFileNotFound(path, err)
		}
		defer f.Close()
		r = f
	}

	t, err := transcript.Parse(r)
	if err != nil {
		return transcript.Transcript{}, errors.ErrReadFailed(path, err)
	}
	return t, nil
}

// classifyOutput is the structured form written by the json and yaml formats.
type classifyOutput struct {
	Command string                      `json:"command" yaml:"command"`
	Lines   []transcript.Line           `json:"lines" yaml:"lines"`
	Stats   map[transcript.Category]int `json:"stats" yaml:"stats"`
}

// writeTranscript renders t to w in format.
func writeTranscript(w io.Writer, t transcript.Transcript, format string, opts render.Options) error {
	lines := t.LinesWith(opts.Classifier)
	if lines == nil {
		lines = []transcript.Line{}
	}

	switch format {
	case "", FormatANSI:
		return render.ANSI(w, t, opts)
	case FormatTable:
		return render.Table(w, lines)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(classifyOutput{Command: t.Command, Lines: lines, Stats: transcript.Stats(lines)})
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(classifyOutput{Command: t.Command, Lines: lines, Stats: transcript.Stats(lines)}); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return ValidateFormat(format)
	}
}

// watchTranscript re-runs fn on every change to path until interrupted.
func watchTranscript(ctx context.Context, cfg *config.Config, logger logging.Logger, path string, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce(), logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	if err := fw.WatchFile(path); err != nil {
		return err
	}

	errHandler := errors.NewErrorHandler(logger)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		logger.Debug(ctx, "Transcript changed", "events", watcher.Describe(events))
		if err := fn(); err != nil {
			// Keep watching; the next save may fix it.
			errHandler.Handle(ctx, err)
		}
		return nil
	})

	if err := fw.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Watching %s for changes (Ctrl+C to stop)\n", path)
	<-ctx.Done()
	return nil
}
