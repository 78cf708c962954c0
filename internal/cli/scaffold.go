package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/swaggerserver/internal/emitter/goemitter"
	"github.com/mark3labs/swaggerserver/internal/spec"
)

// ScaffoldConfig captures all inputs that influence the scaffold command after
// merging defaults, config file values, and CLI overrides.
type ScaffoldConfig struct {
	Spec       string
	Out        string
	Module     string
	Package    string
	ConfigPath string
	DryRun     bool
	Force      bool
	Verbose    bool
	LogFormat  string

	out    io.Writer
	logOut io.Writer
}

var scaffoldRunner = runScaffold

func newScaffoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Generate a Go server project from a Swagger 2.0 document",
		Long: "Generate a Go server project with one handler stub per operation, a registry " +
			"binding them by operationId, and a main that serves the document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swaggerserver scaffold --spec swagger.yaml --out ./petsrv --module example.com/petsrv
  swaggerserver --config swaggerserver.yaml scaffold --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveScaffoldConfig(cmd)
			if err != nil {
				return err
			}
			return scaffoldRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Path or URL to the Swagger 2.0 document")
	flags.String("out", "", "Output directory (derived from the module name when omitted)")
	flags.String("module", "", "Go module path of the generated project (derived from the spec title when omitted)")
	flags.String("package", "", "Package holding the handler stubs (default api)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveScaffoldConfig(cmd *cobra.Command) (*ScaffoldConfig, error) {
	cfg := ScaffoldConfig{}

	g, err := resolveGlobals(cmd)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = g.ConfigPath
	cfg.Verbose = g.Verbose
	cfg.LogFormat = g.LogFormat
	for key, value := range g.section("scaffold") {
		switch normalizeKey(key) {
		case "spec":
			cfg.Spec, err = valueAsString(value)
		case "out":
			cfg.Out, err = valueAsString(value)
		case "module":
			cfg.Module, err = valueAsString(value)
		case "package":
			cfg.Package, err = valueAsString(value)
		case "dryrun":
			cfg.DryRun, err = valueAsBool(value)
		case "force":
			cfg.Force, err = valueAsBool(value)
		default:
			return nil, g.file.unknown("scaffold." + key)
		}
		if err != nil {
			return nil, fieldError(key, err)
		}
	}

	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"spec":    &cfg.Spec,
		"out":     &cfg.Out,
		"module":  &cfg.Module,
		"package": &cfg.Package,
	} {
		if err := stringFlag(flags, name, dst); err != nil {
			return nil, err
		}
	}
	if err := boolFlag(flags, "dry-run", &cfg.DryRun); err != nil {
		return nil, err
	}
	if err := boolFlag(flags, "force", &cfg.Force); err != nil {
		return nil, err
	}

	cfg.out = cmd.OutOrStdout()
	cfg.logOut = cmd.ErrOrStderr()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ScaffoldConfig) normalize() {
	c.Spec = strings.TrimSpace(c.Spec)
	c.Out = strings.TrimSpace(c.Out)
	c.Module = strings.TrimSpace(c.Module)
	c.Package = strings.ToLower(strings.TrimSpace(c.Package))
}

func (c *ScaffoldConfig) validate() error {
	if c.Spec == "" {
		return newUsageError("scaffold: --spec is required (set via flag or config file)")
	}
	if strings.ContainsAny(c.Module, " \t") {
		return newUsageError(fmt.Sprintf("scaffold: invalid --module %q", c.Module))
	}
	return nil
}

func runScaffold(ctx context.Context, cfg *ScaffoldConfig) error {
	logger := newLogger(cfg.logOut, cfg.LogFormat, cfg.Verbose)

	// 1) Read the document and keep its bytes for the generated project
	raw, location, err := spec.Read(ctx, cfg.Spec)
	if err != nil {
		return specUsageError(err)
	}
	doc, err := spec.Parse(raw)
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			se.Location = location
		}
		return specUsageError(err)
	}
	if major, err := spec.MajorVersion(doc); err != nil || major != 2 {
		return newUsageError(fmt.Sprintf("spec: unsupported schema version %q (only Swagger 2.0 is supported)\nLocation: %s", doc.Swagger, location))
	}

	// 2) Build the internal model
	sm, err := spec.BuildServiceModel(ctx, doc)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	// 3) Derive the module and output directory when omitted
	module := cfg.Module
	if module == "" {
		module = goemitter.DefaultModuleName(sm.Title)
	}
	outDir := cfg.Out
	if outDir == "" {
		outDir = path.Base(module)
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}

	// 4) Emit
	res, err := goemitter.Emit(ctx, sm, goemitter.Options{
		OutDir:      outDir,
		ModuleName:  module,
		PackageName: cfg.Package,
		Spec:        raw,
		Force:       cfg.Force,
		DryRun:      cfg.DryRun,
		Verbose:     cfg.Verbose,
	})
	if err != nil {
		if strings.Contains(err.Error(), "invalid package name") {
			return newUsageError(fmt.Sprintf("scaffold: %v", err))
		}
		return wrapOutputError(err, absOut)
	}
	for _, id := range res.Skipped {
		logger.Warn("endpoint skipped: missing or repeated operationId", "endpoint", id)
	}

	paths := make([]string, 0, len(res.Planned))
	for _, p := range res.Planned {
		paths = append(paths, p.RelPath)
	}
	if cfg.DryRun {
		printPlan(cfg.out, absOut, paths)
		return nil
	}
	logger.Debug("scaffold written", "dir", absOut, "files", len(paths))
	fmt.Fprintf(cfg.out, "Wrote %d files for %d operations to %s (module %s)\n", len(paths), res.Operations, absOut, res.ModuleName)
	return nil
}

func printPlan(w io.Writer, outDir string, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}
