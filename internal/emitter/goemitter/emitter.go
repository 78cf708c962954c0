package goemitter

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"
	"unicode"

	genspec "github.com/mark3labs/swaggerserver/internal/spec"
)

// Options controls how the Go emitter renders a server scaffold.
type Options struct {
	OutDir      string // required; target directory to write the project
	ModuleName  string // go module path; derived from the spec title when empty
	PackageName string // package holding the handlers; defaults to "api"
	Spec        []byte // required; document embedded by the generated main
	Force       bool   // overwrite existing files
	DryRun      bool   // don't write, only plan
	Verbose     bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and final resolved names.
type Result struct {
	ModuleName  string
	PackageName string
	Operations  int
	Skipped     []string // endpoints without an operationId, or with a repeated one
	Planned     []PlannedFile
}

// Emit renders a Go server project with one handler stub per operation of
// sm and a Registry binding them. Generated Go files are gofmt'ed.
func Emit(ctx context.Context, sm *genspec.ServiceModel, opts Options) (*Result, error) {
	_ = ctx
	if sm == nil {
		return nil, fmt.Errorf("goemitter: nil ServiceModel")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}
	if len(opts.Spec) == 0 {
		return nil, fmt.Errorf("goemitter: Spec is required")
	}

	pkg := strings.TrimSpace(opts.PackageName)
	if pkg == "" {
		pkg = "api"
	}
	if !validPackageName(pkg) {
		return nil, fmt.Errorf("goemitter: invalid package name %q (lowercase letters and digits only)", pkg)
	}
	moduleName := strings.TrimSpace(opts.ModuleName)
	if moduleName == "" {
		moduleName = DefaultModuleName(sm.Title)
	}

	data, skipped := newTemplateData(moduleName, pkg, sm)

	files := map[string][]byte{}
	files["go.mod"] = []byte(fmt.Sprintf("module %s\n\ngo 1.24\n", moduleName))
	files["swagger.yaml"] = opts.Spec
	rendered := []struct {
		rel  string
		tmpl *template.Template
	}{
		{"README.md", readmeTmpl},
		{"main.go", mainTmpl},
		{filepath.Join(pkg, "handlers.go"), handlersTmpl},
		{filepath.Join(pkg, "registry.go"), registryTmpl},
		{filepath.Join(pkg, "registry_test.go"), registryTestTmpl},
	}
	for _, r := range rendered {
		out, err := render(r.tmpl, data, strings.HasSuffix(r.rel, ".go"))
		if err != nil {
			return nil, fmt.Errorf("goemitter: render %s: %w", r.rel, err)
		}
		files[r.rel] = out
	}

	// Plan in deterministic order
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: filepath.ToSlash(rel), Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}

	return &Result{
		ModuleName:  moduleName,
		PackageName: pkg,
		Operations:  len(data.Operations),
		Skipped:     skipped,
		Planned:     planned,
	}, nil
}

func render(t *template.Template, data templateData, gofmt bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	if !gofmt {
		return buf.Bytes(), nil
	}
	return format.Source(buf.Bytes())
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight: if directory exists and not empty and not force, error.
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("goemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

func validPackageName(name string) bool {
	if name == "" || name == "main" || !unicode.IsLetter(rune(name[0])) {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// DefaultModuleName derives a module path from an API title, e.g.
// "Pet Store: v2" becomes "pet-store-v2". Titles without usable characters
// yield "swaggerserver-app".
func DefaultModuleName(title string) string {
	if name := deriveModuleName(title); name != "" {
		return name
	}
	return "swaggerserver-app"
}

func deriveModuleName(title string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		return ""
	}
	t = strings.ToLower(t)
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ")
	t = repl.Replace(t)
	var parts []string
	for _, f := range strings.Fields(t) {
		var b strings.Builder
		for _, r := range f {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	return strings.Join(parts, "-")
}
