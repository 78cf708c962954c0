package cli

import (
	"context"
	"strings"
	"testing"
	"time"
)

func captureServe(t *testing.T) **ServeConfig {
	t.Helper()
	var captured *ServeConfig
	serveRunner = func(ctx context.Context, cfg *ServeConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { serveRunner = runServe })
	return &captured
}

func TestServeConfigDefaults(t *testing.T) {
	captured := captureServe(t)

	if _, err := runRoot(t, "serve", "--demo"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg == nil {
		t.Fatalf("expected config to be captured")
	}
	if !cfg.Demo || cfg.Spec != "" {
		t.Errorf("demo/spec mismatch: %+v", cfg)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen: got %q", cfg.Listen)
	}
	if cfg.RateLimit != 0 || cfg.Burst != 20 {
		t.Errorf("rate limit defaults: got %v/%d", cfg.RateLimit, cfg.Burst)
	}
	if cfg.ReadHeaderTimeout != 10*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("timeouts: got %v/%v", cfg.ReadHeaderTimeout, cfg.ShutdownTimeout)
	}
	if !cfg.AccessLog {
		t.Errorf("expected access log on by default")
	}
	if cfg.LogFormat != "auto" || cfg.Verbose {
		t.Errorf("logging defaults: got %q verbose=%v", cfg.LogFormat, cfg.Verbose)
	}
}

func TestServeConfigFromFlags(t *testing.T) {
	captured := captureServe(t)

	_, err := runRoot(t,
		"--verbose",
		"--log-format", "JSON",
		"serve",
		"--spec", "swagger.yaml",
		"--listen", "127.0.0.1:9000",
		"--rate-limit", "2.5",
		"--burst", "5",
		"--read-header-timeout", "3s",
		"--shutdown-timeout", "1m",
		"--access-log=false",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg.Spec != "swagger.yaml" || cfg.Demo {
		t.Errorf("spec mismatch: %+v", cfg)
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("listen mismatch: got %q", cfg.Listen)
	}
	if cfg.RateLimit != 2.5 || cfg.Burst != 5 {
		t.Errorf("rate limit mismatch: got %v/%d", cfg.RateLimit, cfg.Burst)
	}
	if cfg.ReadHeaderTimeout != 3*time.Second || cfg.ShutdownTimeout != time.Minute {
		t.Errorf("timeouts mismatch: got %v/%v", cfg.ReadHeaderTimeout, cfg.ShutdownTimeout)
	}
	if cfg.AccessLog {
		t.Errorf("expected access log off")
	}
	if !cfg.Verbose || cfg.LogFormat != "json" {
		t.Errorf("logging mismatch: verbose=%v format=%q", cfg.Verbose, cfg.LogFormat)
	}
}

func TestServeConfigPrecedence(t *testing.T) {
	configPath := writeFile(t, "config.yaml", strings.TrimSpace(`
spec: shared.yaml
verbose: true
logFormat: text
serve:
  listen: ":9090"
  rate-limit: 4
  burst: "8"
  shutdown_timeout: 30
  readHeaderTimeout: 2s
  accessLog: false
scaffold:
  out: ./ignored
`)+"\n")

	captured := captureServe(t)
	_, err := runRoot(t,
		"--config", configPath,
		"serve",
		"--listen", ":7070",
		"--access-log",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg.ConfigPath != configPath {
		t.Errorf("config path: got %q", cfg.ConfigPath)
	}
	if cfg.Spec != "shared.yaml" {
		t.Errorf("spec: want shared.yaml got %q", cfg.Spec)
	}
	if cfg.Listen != ":7070" {
		t.Errorf("listen: flag should win, got %q", cfg.Listen)
	}
	if cfg.RateLimit != 4 || cfg.Burst != 8 {
		t.Errorf("rate limit: got %v/%d", cfg.RateLimit, cfg.Burst)
	}
	if cfg.ShutdownTimeout != 30*time.Second || cfg.ReadHeaderTimeout != 2*time.Second {
		t.Errorf("timeouts: got %v/%v", cfg.ShutdownTimeout, cfg.ReadHeaderTimeout)
	}
	if !cfg.AccessLog {
		t.Errorf("access log: flag should win")
	}
	if !cfg.Verbose || cfg.LogFormat != "text" {
		t.Errorf("globals from file: verbose=%v format=%q", cfg.Verbose, cfg.LogFormat)
	}
}

func TestServeConfigValidation(t *testing.T) {
	cases := map[string][]string{
		"no spec":           {"serve"},
		"spec and demo":     {"serve", "--demo", "--spec", "x.yaml"},
		"negative rate":     {"serve", "--demo", "--rate-limit", "-1"},
		"zero burst":        {"serve", "--demo", "--rate-limit", "1", "--burst", "0"},
		"bad log format":    {"--log-format", "xml", "serve", "--demo"},
		"negative timeouts": {"serve", "--demo", "--shutdown-timeout", "-1s"},
	}
	captureServe(t)
	for name, args := range cases {
		_, err := runRoot(t, args...)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if _, ok := err.(usageError); !ok {
			t.Fatalf("%s: expected usage error, got %T: %v", name, err, err)
		}
	}
}

func TestConfigFile_Errors(t *testing.T) {
	cases := map[string]struct {
		content string
		want    string
	}{
		"unknown top-level":  {"lang: go\n", `unknown field "lang"`},
		"unknown in section": {"serve:\n  color: red\n", `unknown field "serve.color"`},
		"section not a map":  {"serve: fast\n", `section "serve" must be a mapping`},
		"bad type":           {"serve:\n  burst: [1]\n", `config field "burst"`},
		"bad duration":       {"serve:\n  shutdownTimeout: soon\n", `invalid duration "soon"`},
		"bad yaml":           {"serve: [\n", "parse config file"},
	}
	captureServe(t)
	for name, tc := range cases {
		path := writeFile(t, "config.yaml", tc.content)
		_, err := runRoot(t, "--config", path, "serve", "--demo")
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if _, ok := err.(usageError); !ok {
			t.Fatalf("%s: expected usage error, got %T: %v", name, err, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", name, err, tc.want)
		}
	}

	_, err := runRoot(t, "--config", "/does/not/exist.yaml", "serve", "--demo")
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Fatalf("missing config file: got %v", err)
	}
}

func TestScaffoldConfigPrecedence(t *testing.T) {
	configPath := writeFile(t, "config.yaml", strings.TrimSpace(`
spec: shared.yaml
scaffold:
  spec: scaffold.yaml
  out: from-config
  module: example.com/cfg
  package: Handlers
  dryRun: true
`)+"\n")

	var captured *ScaffoldConfig
	scaffoldRunner = func(ctx context.Context, cfg *ScaffoldConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { scaffoldRunner = runScaffold })

	_, err := runRoot(t, "--config", configPath, "scaffold", "--module", "example.com/flag", "--dry-run=false", "--force")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}
	if captured.Spec != "scaffold.yaml" {
		t.Errorf("spec: section should win over shared key, got %q", captured.Spec)
	}
	if captured.Out != "from-config" {
		t.Errorf("out: got %q", captured.Out)
	}
	if captured.Module != "example.com/flag" {
		t.Errorf("module: got %q", captured.Module)
	}
	if captured.Package != "handlers" {
		t.Errorf("package: got %q", captured.Package)
	}
	if captured.DryRun || !captured.Force {
		t.Errorf("dry-run/force: got %v/%v", captured.DryRun, captured.Force)
	}
}

func TestRoutesConfigFromFlags(t *testing.T) {
	var captured *RoutesConfig
	routesRunner = func(ctx context.Context, cfg *RoutesConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { routesRunner = runRoutes })

	_, err := runRoot(t, "routes",
		"--spec", "s.yaml",
		"--include-tags", "pets, pets,admin",
		"--method", "GET,put",
		"--path", "^/pets",
		"--format", "YAML",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if want := []string{"pets", "admin"}; !equalStringSlices(captured.IncludeTags, want) {
		t.Errorf("include tags: got %v", captured.IncludeTags)
	}
	if want := []string{"get", "put"}; !equalStringSlices(captured.Methods, want) {
		t.Errorf("methods: got %v", captured.Methods)
	}
	if want := []string{"^/pets"}; !equalStringSlices(captured.Paths, want) {
		t.Errorf("paths: got %v", captured.Paths)
	}
	if captured.Format != "yaml" {
		t.Errorf("format: got %q", captured.Format)
	}

	for name, args := range map[string][]string{
		"no spec":     {"routes"},
		"bad format":  {"routes", "--spec", "s.yaml", "--format", "xml"},
		"bad method":  {"routes", "--spec", "s.yaml", "--method", "fetch"},
		"tag overlap": {"routes", "--spec", "s.yaml", "--include-tags", "a", "--exclude-tags", "a"},
	} {
		if _, err := runRoot(t, args...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestValueConversions(t *testing.T) {
	t.Parallel()
	if d, err := valueAsDuration("250ms"); err != nil || d != 250*time.Millisecond {
		t.Fatalf("duration string: %v %v", d, err)
	}
	if d, err := valueAsDuration(1.5); err != nil || d != 1500*time.Millisecond {
		t.Fatalf("duration seconds: %v %v", d, err)
	}
	if n, err := valueAsInt(3.0); err != nil || n != 3 {
		t.Fatalf("int from float: %v %v", n, err)
	}
	if _, err := valueAsInt(3.5); err == nil {
		t.Fatalf("expected error for fractional int")
	}
	if f, err := valueAsFloat("0.5"); err != nil || f != 0.5 {
		t.Fatalf("float from string: %v %v", f, err)
	}
	if b, err := valueAsBool("yes"); err != nil || !b {
		t.Fatalf("bool from string: %v %v", b, err)
	}
	if list, err := valueAsStringSlice("a, b,,c"); err != nil || !equalStringSlices(list, []string{"a", "b", "c"}) {
		t.Fatalf("slice from csv: %v %v", list, err)
	}
	if got := normalizeKey(" Read_Header-Timeout "); got != "readheadertimeout" {
		t.Fatalf("normalizeKey: got %q", got)
	}
}
