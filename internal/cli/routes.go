package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggerserver/internal/spec"
)

// RoutesConfig captures the inputs of the routes command.
type RoutesConfig struct {
	Spec        string
	IncludeTags []string
	ExcludeTags []string
	Methods     []string
	Paths       []string // regular expressions matched against the declared path
	Format      string   // table|json|yaml
	ConfigPath  string
	Verbose     bool

	out io.Writer
}

var routesRunner = runRoutes

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes a Swagger 2.0 document binds",
		Long: "List every operation of a Swagger 2.0 document with its router pattern, " +
			"operationId, tags and parameters. Filters narrow the list.",
		Example: strings.TrimSpace(`  swaggerserver routes --spec swagger.yaml
  swaggerserver routes --spec swagger.yaml --include-tags pets --method get --format json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveRoutesConfig(cmd)
			if err != nil {
				return err
			}
			return routesRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Path or URL to the Swagger 2.0 document")
	flags.StringSlice("include-tags", nil, "Only list operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Skip operations with these tags")
	flags.StringSlice("method", nil, "Only list these HTTP methods")
	flags.StringSlice("path", nil, "Only list paths matching these regular expressions")
	flags.String("format", "table", "Output format: table, json or yaml")

	return cmd
}

func resolveRoutesConfig(cmd *cobra.Command) (*RoutesConfig, error) {
	cfg := RoutesConfig{Format: "table"}

	g, err := resolveGlobals(cmd)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = g.ConfigPath
	cfg.Verbose = g.Verbose
	for key, value := range g.section("routes") {
		switch normalizeKey(key) {
		case "spec":
			cfg.Spec, err = valueAsString(value)
		case "includetags":
			cfg.IncludeTags, err = valueAsStringSlice(value)
		case "excludetags":
			cfg.ExcludeTags, err = valueAsStringSlice(value)
		case "methods", "method":
			cfg.Methods, err = valueAsStringSlice(value)
		case "paths", "path":
			cfg.Paths, err = valueAsStringSlice(value)
		case "format":
			cfg.Format, err = valueAsString(value)
		default:
			return nil, g.file.unknown("routes." + key)
		}
		if err != nil {
			return nil, fieldError(key, err)
		}
	}

	flags := cmd.Flags()
	if err := stringFlag(flags, "spec", &cfg.Spec); err != nil {
		return nil, err
	}
	if err := sliceFlag(flags, "include-tags", &cfg.IncludeTags); err != nil {
		return nil, err
	}
	if err := sliceFlag(flags, "exclude-tags", &cfg.ExcludeTags); err != nil {
		return nil, err
	}
	if err := sliceFlag(flags, "method", &cfg.Methods); err != nil {
		return nil, err
	}
	if err := sliceFlag(flags, "path", &cfg.Paths); err != nil {
		return nil, err
	}
	if err := stringFlag(flags, "format", &cfg.Format); err != nil {
		return nil, err
	}

	cfg.out = cmd.OutOrStdout()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RoutesConfig) normalize() {
	c.Spec = strings.TrimSpace(c.Spec)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "" {
		c.Format = "table"
	}
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	methods := make([]string, 0, len(c.Methods))
	for _, m := range sanitizeTags(c.Methods) {
		methods = append(methods, strings.ToLower(m))
	}
	c.Methods = sanitizeTags(methods)
	c.Paths = sanitizeTags(c.Paths)
}

func (c *RoutesConfig) validate() error {
	if c.Spec == "" {
		return newUsageError("routes: --spec is required (set via flag or config file)")
	}
	switch c.Format {
	case "table", "json", "yaml":
	default:
		return newUsageError(fmt.Sprintf("routes: unsupported --format %q (allowed: table, json, yaml)", c.Format))
	}
	for _, m := range c.Methods {
		if !knownMethod(m) {
			return newUsageError(fmt.Sprintf("routes: unknown --method %q", m))
		}
	}
	if overlap := intersect(c.IncludeTags, c.ExcludeTags); len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("routes: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}
	return nil
}

func knownMethod(m string) bool {
	for _, known := range spec.Methods {
		if string(known) == m {
			return true
		}
	}
	return false
}

func runRoutes(ctx context.Context, cfg *RoutesConfig) error {
	doc, err := spec.Load(ctx, cfg.Spec)
	if err != nil {
		return specUsageError(err)
	}

	methods := make([]spec.HttpMethod, 0, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods = append(methods, spec.HttpMethod(m))
	}
	sm, err := spec.BuildServiceModel(ctx, doc,
		spec.WithIncludeTags(cfg.IncludeTags),
		spec.WithExcludeTags(cfg.ExcludeTags),
		spec.WithMethods(methods),
		spec.WithPathPatterns(cfg.Paths),
	)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	out := cfg.out
	switch cfg.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sm)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(sm); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(out, renderRoutesTable(sm))
		return err
	}
}

func renderRoutesTable(sm *spec.ServiceModel) string {
	if len(sm.Endpoints) == 0 {
		return styles.Dim.Render("No routes.")
	}
	rows := make([][]string, 0, len(sm.Endpoints))
	for _, ep := range sm.Endpoints {
		opID := ep.OperationID
		if opID == "" {
			opID = "(missing)"
		}
		names := make([]string, 0, len(ep.Parameters))
		for _, p := range ep.Parameters {
			names = append(names, p.Name)
		}
		rows = append(rows, []string{
			strings.ToUpper(string(ep.Method)),
			path.Join("/", sm.BasePath, ep.Pattern),
			opID,
			strings.Join(ep.Tags, ","),
			strings.Join(names, ", "),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Dim).
		Headers("METHOD", "ROUTE", "OPERATION", "TAGS", "PARAMETERS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return styles.Header.Padding(0, 1)
			case col == 0:
				return styles.Method.Padding(0, 1)
			case col == 2 && rows[row][2] == "(missing)":
				return styles.Error.Padding(0, 1)
			}
			return base
		})

	title := sm.Title
	if title == "" {
		title = "Routes"
	}
	summary := fmt.Sprintf("%s %s", styles.Header.Render(title), styles.Dim.Render(fmt.Sprintf("(%d routes)", len(sm.Endpoints))))
	return summary + "\n" + t.String()
}
