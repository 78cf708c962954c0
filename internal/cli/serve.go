package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mark3labs/swaggerserver"
	"github.com/mark3labs/swaggerserver/internal/petstore"
	"github.com/mark3labs/swaggerserver/internal/spec"
	"github.com/mark3labs/swaggerserver/internal/stub"
)

// ServeConfig captures all inputs of the serve command after merging
// defaults, config file values, and CLI overrides.
type ServeConfig struct {
	Spec              string
	Demo              bool
	Listen            string
	RateLimit         float64 // requests per second per client; 0 disables
	Burst             int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	AccessLog         bool
	ConfigPath        string
	Verbose           bool
	LogFormat         string

	logOut io.Writer
}

func defaultServeConfig() ServeConfig {
	return ServeConfig{
		Listen:            ":8080",
		Burst:             20,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		AccessLog:         true,
		LogFormat:         "auto",
	}
}

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a Swagger 2.0 document with echo handlers",
		Long: "Serve every operation of a Swagger 2.0 document. Each operation answers " +
			"with its operationId and the arguments bound from the request, which makes " +
			"it easy to check how requests map onto handler parameters. " +
			"--demo serves the built-in pet store instead.",
		Example: strings.TrimSpace(`  swaggerserver serve --spec swagger.yaml --listen :9090
  swaggerserver serve --demo --rate-limit 5 --burst 10`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd)
			if err != nil {
				return err
			}
			return serveRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Path or URL to the Swagger 2.0 document")
	flags.Bool("demo", false, "Serve the built-in pet store document")
	flags.String("listen", "", "Address to listen on (default :8080)")
	flags.Float64("rate-limit", 0, "Requests per second allowed per client IP (0 disables)")
	flags.Int("burst", 0, "Burst size of the per-client rate limit (default 20)")
	flags.Duration("read-header-timeout", 0, "Maximum time to read request headers (default 10s)")
	flags.Duration("shutdown-timeout", 0, "Grace period for in-flight requests on shutdown (default 10s)")
	flags.Bool("access-log", true, "Log one line per request")

	return cmd
}

func resolveServeConfig(cmd *cobra.Command) (*ServeConfig, error) {
	cfg := defaultServeConfig()

	g, err := resolveGlobals(cmd)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = g.ConfigPath
	cfg.Verbose = g.Verbose
	cfg.LogFormat = g.LogFormat
	if err := applyServeSection(&cfg, g); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if err := stringFlag(flags, "spec", &cfg.Spec); err != nil {
		return nil, err
	}
	if err := boolFlag(flags, "demo", &cfg.Demo); err != nil {
		return nil, err
	}
	if err := stringFlag(flags, "listen", &cfg.Listen); err != nil {
		return nil, err
	}
	if flags.Changed("rate-limit") {
		if cfg.RateLimit, err = flags.GetFloat64("rate-limit"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("burst") {
		if cfg.Burst, err = flags.GetInt("burst"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("read-header-timeout") {
		if cfg.ReadHeaderTimeout, err = flags.GetDuration("read-header-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("shutdown-timeout") {
		if cfg.ShutdownTimeout, err = flags.GetDuration("shutdown-timeout"); err != nil {
			return nil, err
		}
	}
	if err := boolFlag(flags, "access-log", &cfg.AccessLog); err != nil {
		return nil, err
	}

	cfg.logOut = cmd.ErrOrStderr()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyServeSection(cfg *ServeConfig, g *globalConfig) error {
	var err error
	for key, value := range g.section("serve") {
		switch normalizeKey(key) {
		case "spec":
			cfg.Spec, err = valueAsString(value)
		case "demo":
			cfg.Demo, err = valueAsBool(value)
		case "listen":
			cfg.Listen, err = valueAsString(value)
		case "ratelimit":
			cfg.RateLimit, err = valueAsFloat(value)
		case "burst":
			cfg.Burst, err = valueAsInt(value)
		case "readheadertimeout":
			cfg.ReadHeaderTimeout, err = valueAsDuration(value)
		case "shutdowntimeout":
			cfg.ShutdownTimeout, err = valueAsDuration(value)
		case "accesslog":
			cfg.AccessLog, err = valueAsBool(value)
		default:
			return g.file.unknown("serve." + key)
		}
		if err != nil {
			return fieldError(key, err)
		}
	}
	return nil
}

func (c *ServeConfig) normalize() {
	c.Spec = strings.TrimSpace(c.Spec)
	c.Listen = strings.TrimSpace(c.Listen)
	if c.Listen == "" {
		c.Listen = ":8080"
	}
}

func (c *ServeConfig) validate() error {
	switch {
	case c.Demo && c.Spec != "":
		return newUsageError("serve: --spec and --demo are mutually exclusive")
	case !c.Demo && c.Spec == "":
		return newUsageError("serve: --spec is required (set via flag or config file) unless --demo is given")
	case c.RateLimit < 0:
		return newUsageError(fmt.Sprintf("serve: --rate-limit must not be negative, got %v", c.RateLimit))
	case c.RateLimit > 0 && c.Burst <= 0:
		return newUsageError(fmt.Sprintf("serve: --burst must be positive when rate limiting, got %d", c.Burst))
	case c.ReadHeaderTimeout < 0 || c.ShutdownTimeout < 0:
		return newUsageError("serve: timeouts must not be negative")
	}
	return nil
}

func runServe(ctx context.Context, cfg *ServeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg.logWriter(), cfg.LogFormat, cfg.Verbose)
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	handler, table, err := newServeHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return newUsageError(fmt.Sprintf("serve: listen on %s: %v", cfg.Listen, err))
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info("serving",
		"addr", ln.Addr().String(),
		"base_path", table.BasePath(),
		"routes", len(table.Routes()),
		"demo", cfg.Demo,
	)
	return serveUntilDone(ctx, srv, ln, cfg.ShutdownTimeout, logger)
}

// serveUntilDone runs srv on ln until ctx is cancelled, then shuts it down
// gracefully within grace.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "grace", grace)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// newServeHandler binds the configured document and wraps the routes in the
// serve middleware: recovery, access log and rate limit.
func newServeHandler(ctx context.Context, cfg *ServeConfig, logger *slog.Logger) (http.Handler, *swaggerserver.RouteTable, error) {
	var (
		src any
		reg swaggerserver.Registry
	)
	if cfg.Demo {
		src, reg = petstore.Spec, petstore.Registry()
	} else {
		doc, err := spec.Load(ctx, cfg.Spec)
		if err != nil {
			return nil, nil, specUsageError(err)
		}
		sm, err := spec.BuildServiceModel(ctx, doc)
		if err != nil {
			return nil, nil, fmt.Errorf("serve: %w", err)
		}
		src, reg = doc, stub.Registry(sm)
	}

	table, err := swaggerserver.Build(ctx, src, reg, swaggerserver.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("serve: %w", err)
	}
	for _, r := range table.Routes() {
		logger.Debug("route", "method", r.Method, "path", r.Pattern, "operation_id", r.OperationID)
	}

	engine := gin.New()
	engine.Use(recovery(logger))
	if cfg.AccessLog {
		engine.Use(accessLog(logger))
	}
	if cfg.RateLimit > 0 {
		engine.Use(rateLimit(rateLimitConfig{Rate: cfg.RateLimit, Burst: cfg.Burst}))
	}
	engine.NoRoute(notFound)
	if err := table.Mount(engine); err != nil {
		return nil, nil, fmt.Errorf("serve: %w", err)
	}
	return engine, table, nil
}

func (c *ServeConfig) logWriter() io.Writer {
	if c.logOut != nil {
		return c.logOut
	}
	return os.Stderr
}
