package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// fileConfig is a parsed config file: keys shared by every command plus one
// section per command.
//
//	spec: ./swagger.yaml
//	verbose: true
//	serve:
//	  listen: :9090
//	scaffold:
//	  out: ./server
type fileConfig struct {
	path     string
	shared   map[string]any
	sections map[string]map[string]any
}

var configSections = map[string]bool{"serve": true, "routes": true, "check": true, "scaffold": true}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	fc := &fileConfig{path: path, shared: map[string]any{}, sections: map[string]map[string]any{}}
	for key, value := range raw {
		normalized := normalizeKey(key)
		switch {
		case normalized == "spec" || normalized == "verbose" || normalized == "logformat":
			fc.shared[normalized] = value
		case configSections[normalized]:
			if value == nil {
				continue
			}
			section, ok := value.(map[string]any)
			if !ok {
				return nil, newUsageError(fmt.Sprintf("config file %q: section %q must be a mapping", path, key))
			}
			fc.sections[normalized] = section
		default:
			return nil, newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}
	return fc, nil
}

// section returns the entries of the named command section with the shared
// spec key folded in. Section entries win.
func (fc *fileConfig) section(name string) map[string]any {
	out := map[string]any{}
	if v, ok := fc.shared["spec"]; ok {
		out["spec"] = v
	}
	for k, v := range fc.sections[name] {
		out[k] = v
	}
	return out
}

func (fc *fileConfig) unknown(key string) error {
	return newUsageError(fmt.Sprintf("config file %q: unknown field %q", fc.path, key))
}

func fieldError(key string, err error) error {
	return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
}

// globalConfig carries the persistent flags every command understands.
type globalConfig struct {
	ConfigPath string
	Verbose    bool
	LogFormat  string
	file       *fileConfig
}

// resolveGlobals layers the persistent flags over the shared keys of the
// config file, when one is given.
func resolveGlobals(cmd *cobra.Command) (*globalConfig, error) {
	g := &globalConfig{LogFormat: "auto"}
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	g.ConfigPath = strings.TrimSpace(configPath)
	if g.ConfigPath != "" {
		fc, err := loadFileConfig(g.ConfigPath)
		if err != nil {
			return nil, err
		}
		g.file = fc
		if v, ok := fc.shared["verbose"]; ok {
			if g.Verbose, err = valueAsBool(v); err != nil {
				return nil, fieldError("verbose", err)
			}
		}
		if v, ok := fc.shared["logformat"]; ok {
			if g.LogFormat, err = valueAsString(v); err != nil {
				return nil, fieldError("logFormat", err)
			}
		}
	}

	if flags.Changed("verbose") {
		if g.Verbose, err = flags.GetBool("verbose"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-format") {
		value, err := flags.GetString("log-format")
		if err != nil {
			return nil, err
		}
		g.LogFormat = value
	}

	g.LogFormat = strings.ToLower(strings.TrimSpace(g.LogFormat))
	switch g.LogFormat {
	case "":
		g.LogFormat = "auto"
	case "auto", "text", "json":
	default:
		return nil, newUsageError(fmt.Sprintf("unsupported --log-format %q (allowed: auto, text, json)", g.LogFormat))
	}
	return g, nil
}

// section returns the config file entries for the named command, or nil
// when no config file was given.
func (g *globalConfig) section(name string) map[string]any {
	if g.file == nil {
		return nil
	}
	return g.file.section(name)
}

func stringFlag(flags *pflag.FlagSet, name string, dst *string) error {
	if !flags.Changed(name) {
		return nil
	}
	value, err := flags.GetString(name)
	if err != nil {
		return err
	}
	*dst = strings.TrimSpace(value)
	return nil
}

func boolFlag(flags *pflag.FlagSet, name string, dst *bool) error {
	if !flags.Changed(name) {
		return nil
	}
	value, err := flags.GetBool(name)
	if err != nil {
		return err
	}
	*dst = value
	return nil
}

func sliceFlag(flags *pflag.FlagSet, name string, dst *[]string) error {
	if !flags.Changed(name) {
		return nil
	}
	value, err := flags.GetStringSlice(name)
	if err != nil {
		return err
	}
	*dst = sanitizeTags(value)
	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func valueAsFloat(v any) (float64, error) {
	switch val := v.(type) {
	case int:
		return float64(val), nil
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", val)
		}
		return f, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// valueAsDuration accepts Go duration strings ("5s") or a bare number of
// seconds.
func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
