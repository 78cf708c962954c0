package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mark3labs/swaggerserver/internal/spec"
)

// CheckConfig captures the inputs of the check command.
type CheckConfig struct {
	Spec       string
	Strict     bool // warnings fail the check too
	Watch      bool
	Debounce   time.Duration
	ConfigPath string
	Verbose    bool
	LogFormat  string

	out    io.Writer
	logOut io.Writer
}

var checkRunner = runCheck

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report binding problems in a Swagger 2.0 document",
		Long: "Check a Swagger 2.0 document for problems that would stop it from binding " +
			"(missing operationIds, unknown parameter locations, duplicate body parameters) " +
			"and for constructs that bind with surprising results. " +
			"--watch re-runs the check whenever the file changes.",
		Example: strings.TrimSpace(`  swaggerserver check --spec swagger.yaml
  swaggerserver check --spec swagger.yaml --strict --watch`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveCheckConfig(cmd)
			if err != nil {
				return err
			}
			return checkRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Path or URL to the Swagger 2.0 document")
	flags.Bool("strict", false, "Treat warnings as failures")
	flags.Bool("watch", false, "Re-run the check when the document changes (local files only)")
	flags.Duration("debounce", 0, "Quiet period before a change triggers a re-run (default 300ms)")

	return cmd
}

func resolveCheckConfig(cmd *cobra.Command) (*CheckConfig, error) {
	cfg := CheckConfig{Debounce: 300 * time.Millisecond}

	g, err := resolveGlobals(cmd)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = g.ConfigPath
	cfg.Verbose = g.Verbose
	cfg.LogFormat = g.LogFormat
	for key, value := range g.section("check") {
		switch normalizeKey(key) {
		case "spec":
			cfg.Spec, err = valueAsString(value)
		case "strict":
			cfg.Strict, err = valueAsBool(value)
		case "watch":
			cfg.Watch, err = valueAsBool(value)
		case "debounce":
			cfg.Debounce, err = valueAsDuration(value)
		default:
			return nil, g.file.unknown("check." + key)
		}
		if err != nil {
			return nil, fieldError(key, err)
		}
	}

	flags := cmd.Flags()
	if err := stringFlag(flags, "spec", &cfg.Spec); err != nil {
		return nil, err
	}
	if err := boolFlag(flags, "strict", &cfg.Strict); err != nil {
		return nil, err
	}
	if err := boolFlag(flags, "watch", &cfg.Watch); err != nil {
		return nil, err
	}
	if flags.Changed("debounce") {
		if cfg.Debounce, err = flags.GetDuration("debounce"); err != nil {
			return nil, err
		}
	}

	cfg.out = cmd.OutOrStdout()
	cfg.logOut = cmd.ErrOrStderr()
	cfg.Spec = strings.TrimSpace(cfg.Spec)
	if cfg.Spec == "" {
		return nil, newUsageError("check: --spec is required (set via flag or config file)")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch && isRemote(cfg.Spec) {
		return nil, newUsageError("check: --watch only works with local files")
	}
	return &cfg, nil
}

func isRemote(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func runCheck(ctx context.Context, cfg *CheckConfig) error {
	if !cfg.Watch {
		return checkOnce(ctx, cfg)
	}
	logger := newLogger(cfg.logOut, cfg.LogFormat, cfg.Verbose)
	_ = checkOnce(ctx, cfg)
	return watchFile(ctx, cfg.Spec, cfg.Debounce, logger, func() {
		_ = checkOnce(ctx, cfg)
	})
}

// checkOnce loads and lints the document, prints a report and returns
// ErrCheckFailed when it has errors (or warnings under --strict).
func checkOnce(ctx context.Context, cfg *CheckConfig) error {
	out := cfg.out
	doc, err := spec.Load(ctx, cfg.Spec)
	if err != nil {
		err = specUsageError(err)
		fmt.Fprintf(out, "%s %v\n", styles.Error.Render("error:"), err)
		return err
	}

	issues := spec.Lint(doc)

	var errs, warns int
	for _, is := range issues {
		style := styles.Warning
		if is.Severity == spec.SeverityError {
			style = styles.Error
			errs++
		} else {
			warns++
		}
		fmt.Fprintln(out, style.Render(is.String()))
	}

	failed := errs > 0 || (cfg.Strict && warns > 0)
	summary := fmt.Sprintf("%s: %d error(s), %d warning(s)", cfg.Spec, errs, warns)
	if failed {
		fmt.Fprintln(out, styles.Error.Render(summary))
		return fmt.Errorf("%w: %d error(s), %d warning(s)", ErrCheckFailed, errs, warns)
	}
	fmt.Fprintln(out, styles.Success.Render(summary))
	return nil
}

// watchFile calls fn after file changes, once per quiet period of debounce.
// The parent directory is watched so editors that replace the file on save
// are still seen. It returns when ctx is done.
func watchFile(ctx context.Context, file string, debounce time.Duration, logger *slog.Logger, fn func()) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("check: resolve %s: %w", file, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("check: watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("check: watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching for changes", "file", abs, "debounce", debounce)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
		timerC = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timerC:
			timerC = nil
			logger.Debug("change detected, re-running check", "file", abs)
			fn()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldTrigger(evt, abs) {
				resetTimer()
			}
		}
	}
}

// shouldTrigger reports whether evt touches the watched file.
func shouldTrigger(evt fsnotify.Event, file string) bool {
	if strings.TrimSpace(evt.Name) == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(evt.Name)
	if err != nil {
		return false
	}
	return filepath.Clean(name) == filepath.Clean(file)
}
