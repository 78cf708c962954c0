package spec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/invopop/yaml"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/parameters/petId"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// Load reads a Swagger document from a filesystem path or an http/https URL
// and parses it. The schema version is not checked here; see MajorVersion.
//
// file:// URLs and other schemes are rejected.
func Load(ctx context.Context, input string, opts ...Option) (*openapi2.T, error) {
	raw, location, err := Read(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(raw)
	if err != nil {
		var se *SpecError
		if errors.As(err, &se) {
			se.Location = location
			return nil, se
		}
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
	}
	return doc, nil
}

// Read returns the raw bytes of the document at input together with its
// resolved location (absolute path or URL). Load is Read followed by Parse.
func Read(ctx context.Context, input string, opts ...Option) ([]byte, string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, input, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	return readInput(ctx, input, settings)
}

func readInput(ctx context.Context, input string, settings Settings) ([]byte, string, error) {
	// Classify input as URL or file path.
	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && (u.Host != "" || strings.EqualFold(u.Scheme, "file"))

	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, input, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, input, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, input, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return raw, input, nil
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, input, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, abs, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return raw, abs, nil
}

// Parse decodes a YAML or JSON Swagger document.
func Parse(data []byte) (*openapi2.T, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse spec: %v", err), Cause: err}
	}
	var root map[string]any
	if err := json.Unmarshal(js, &root); err != nil {
		return nil, &SpecError{Code: ParseError, Message: "parse spec: document root must be a mapping", Cause: err}
	}
	return FromMap(root)
}

// FromMap decodes a generic in-memory document, as produced by decoding
// YAML or JSON into a map. root is not modified.
func FromMap(root map[string]any) (*openapi2.T, error) {
	if root == nil {
		return nil, &SpecError{Code: ParseError, Message: "parse spec: empty document"}
	}
	fixed := make(map[string]any, len(root))
	for k, v := range root {
		fixed[k] = v
	}
	// Unquoted YAML versions (swagger: 2.0) decode as numbers.
	if v, ok := fixed["swagger"]; ok {
		fixed["swagger"] = versionString(v)
	}
	js, err := json.Marshal(fixed)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("encode spec: %v", err), Cause: err}
	}
	var doc openapi2.T
	if err := json.Unmarshal(js, &doc); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode spec: %v", err), Cause: err}
	}
	return &doc, nil
}

func versionString(v any) any {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return v
	}
}

// MajorVersion returns the major component of the document's swagger field.
func MajorVersion(doc *openapi2.T) (uint64, error) {
	if doc == nil {
		return 0, &SpecError{Code: ValidationError, Message: "spec: nil document"}
	}
	raw := strings.TrimSpace(doc.Swagger)
	if raw == "" {
		return 0, &SpecError{Code: ValidationError, Message: "spec: missing swagger version (expected 'swagger: \"2.0\"')"}
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return 0, &SpecError{Code: ValidationError, Message: fmt.Sprintf("spec: invalid swagger version %q: %v", raw, err), JSONPointer: "#/swagger", Cause: err}
	}
	return v.Major(), nil
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		body, retry, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		return body, false, err
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
