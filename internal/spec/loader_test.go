package spec

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const petSpecYAML = `swagger: "2.0"
info:
  title: Pets
  version: "1.0.0"
basePath: /api
parameters:
  petIdParam:
    in: path
    name: petId
    type: integer
    required: true
paths:
  /pets:
    get:
      operationId: getAllPets
      tags: [read]
      responses:
        200:
          description: ok
  /pets/{petId}:
    parameters:
      - $ref: '#/parameters/petIdParam'
    get:
      operationId: getPetById
      tags: [read]
      responses:
        200:
          description: ok
`

func TestLoad_BlocksFileURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, err := Load(ctx, "file:///etc/hosts")
	if err == nil {
		t.Fatalf("expected error for file:// URL")
	}
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %T", err)
	}
	if se.Code != InputError {
		t.Fatalf("expected InputError, got %v", se.Code)
	}
}

func TestLoad_UnsupportedScheme(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, err := Load(ctx, "ftp://example.com/spec.yaml")
	if err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "  ")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
	if se.Location == "" {
		t.Fatalf("expected location to be set")
	}
}

func TestLoad_NetworkError(t *testing.T) {
	t.Parallel()
	// Unused port to provoke a quick network failure.
	url := "http://127.0.0.1:1/spec.yaml"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Load(ctx, url, WithHTTPTimeout(200*time.Millisecond), WithMaxRetries(2), WithBackoffBase(10*time.Millisecond))
	if err == nil {
		t.Fatalf("expected network error")
	}
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
}

func TestLoad_URLRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(petSpecYAML))
	}))
	defer srv.Close()

	doc, err := Load(context.Background(), srv.URL+"/swagger.yaml", WithBackoffBase(time.Millisecond))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.BasePath != "/api" {
		t.Fatalf("basePath: got %q", doc.BasePath)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestLoad_URLClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/missing.yaml", WithBackoffBase(time.Millisecond))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "swagger.yaml")
	if err := os.WriteFile(path, []byte(petSpecYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Swagger != "2.0" {
		t.Fatalf("swagger: got %q", doc.Swagger)
	}
	if len(doc.Paths) != 2 {
		t.Fatalf("paths: got %d", len(doc.Paths))
	}
	if doc.Paths["/pets"].Get == nil || doc.Paths["/pets"].Get.OperationID != "getAllPets" {
		t.Fatalf("expected getAllPets on GET /pets")
	}
}

func TestRead_ReturnsRawBytesAndLocation(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "swagger.yaml")
	if err := os.WriteFile(path, []byte(petSpecYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, loc, err := Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != petSpecYAML {
		t.Fatalf("raw bytes differ from file contents")
	}
	abs, _ := filepath.Abs(path)
	if loc != abs {
		t.Fatalf("location: got %q want %q", loc, abs)
	}

	// Read does not parse, so a broken document is returned as-is.
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("swagger: [unterminated\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Read(context.Background(), broken); err != nil {
		t.Fatalf("read broken: %v", err)
	}
}

func TestLoad_ParseErrorCarriesLocation(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("swagger: [unterminated\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(context.Background(), path)
	var se *SpecError
	if !errors.As(err, &se) || se.Code != ParseError {
		t.Fatalf("expected ParseError, got %v (%T)", err, err)
	}
	if se.Location == "" {
		t.Fatalf("expected location to be set")
	}
}

func TestParse_JSON(t *testing.T) {
	t.Parallel()
	doc, err := Parse([]byte(`{"swagger":"2.0","basePath":"/v1","paths":{"/x":{"get":{"operationId":"x"}}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.BasePath != "/v1" || doc.Paths["/x"].Get.OperationID != "x" {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestParse_UnquotedVersion(t *testing.T) {
	t.Parallel()
	doc, err := Parse([]byte("swagger: 2.0\npaths: {}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	major, err := MajorVersion(doc)
	if err != nil {
		t.Fatalf("major: %v", err)
	}
	if major != 2 {
		t.Fatalf("major: got %d", major)
	}
}

func TestParse_RootMustBeMapping(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte("- a\n- b\n"))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != ParseError {
		t.Fatalf("expected ParseError, got %v (%T)", err, err)
	}
}

func TestFromMap_DoesNotModifyInput(t *testing.T) {
	t.Parallel()
	root := map[string]any{"swagger": 2.0, "paths": map[string]any{}}
	if _, err := FromMap(root); err != nil {
		t.Fatalf("from map: %v", err)
	}
	if _, ok := root["swagger"].(float64); !ok {
		t.Fatalf("input map was modified: %#v", root["swagger"])
	}
}

func TestMajorVersion(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		in      string
		want    uint64
		wantErr bool
	}{
		"two":     {in: "2.0", want: 2},
		"one":     {in: "1.2", want: 1},
		"three":   {in: "3.0.1", want: 3},
		"bare":    {in: "2", want: 2},
		"missing": {in: "", wantErr: true},
		"garbage": {in: "two", wantErr: true},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			doc, err := Parse([]byte("paths: {}\n"))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			doc.Swagger = tc.in
			got, err := MajorVersion(doc)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("major: %v", err)
			}
			if got != tc.want {
				t.Fatalf("major(%q): got %d want %d", tc.in, got, tc.want)
			}
		})
	}
}
