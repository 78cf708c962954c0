package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool

	out io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample swaggerserver configuration file",
		Long:  "Write a commented swaggerserver configuration file that documents the options of every command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
				out:        cmd.OutOrStdout(),
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", "swaggerserver.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "swaggerserver.yaml"
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	// Atomic write via temp + rename
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	w := cfg.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
// It parses as a valid config with every option left at its default.
const sampleConfigYAML = `# swaggerserver configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL to the Swagger 2.0 document (http/https or local file).
# Shared by every command; a command section may override it.
# spec: ./swagger.yaml

# Log format: auto (text on a terminal, JSON otherwise), text or json.
# logFormat: auto

# Enable verbose (debug) logging.
# verbose: false

serve:
  # Address to listen on.
  # listen: :8080

  # Serve the built-in pet store instead of spec.
  # demo: false

  # Requests per second allowed per client IP (0 disables) and burst size.
  # rateLimit: 0
  # burst: 20

  # Timeouts, as Go durations.
  # readHeaderTimeout: 10s
  # shutdownTimeout: 10s

  # Log one line per request.
  # accessLog: true

routes:
  # Only list operations with these tags (comma-separated or list).
  # includeTags: [pets]

  # Skip operations with these tags.
  # excludeTags: [internal]

  # Only list these methods, or paths matching these regular expressions.
  # methods: [get, post]
  # paths: ['^/pets']

  # Output format: table, json or yaml.
  # format: table

check:
  # Treat warnings as failures.
  # strict: false

  # Re-run on every change to the document, after a quiet period.
  # watch: false
  # debounce: 300ms

scaffold:
  # Output directory. When omitted, derived from the module name.
  # out: ./petsrv

  # Go module path (e.g. example.com/petsrv). Derived from the spec title when omitted.
  # module: example.com/petsrv

  # Package holding the handler stubs.
  # package: api

  # Preview planned outputs without writing files.
  # dryRun: false

  # Overwrite a non-empty output directory.
  # force: false
`
