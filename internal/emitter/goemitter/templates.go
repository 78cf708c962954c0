package goemitter

import (
	"go/token"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	genspec "github.com/mark3labs/swaggerserver/internal/spec"
)

type templateData struct {
	Title      string
	Version    string
	BasePath   string
	Module     string
	Package    string
	Operations []operationData
}

type operationData struct {
	OperationID string
	Func        string
	Method      string
	Path        string
	Summary     string
	Params      []paramData
}

type paramData struct {
	Name   string // declared name, as bound by the registry
	Ident  string // Go identifier of the argument
	GoType string
	In     string
}

// Signature returns the argument list of the handler stub.
func (o operationData) Signature() string {
	parts := make([]string, 0, len(o.Params))
	for _, p := range o.Params {
		parts = append(parts, p.Ident+" "+p.GoType)
	}
	return strings.Join(parts, ", ")
}

// Names returns the registry name list, e.g. "petId, petName".
func (o operationData) Names() string {
	names := make([]string, 0, len(o.Params))
	for _, p := range o.Params {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func newTemplateData(module, pkg string, sm *genspec.ServiceModel) (templateData, []string) {
	data := templateData{
		Title:    sm.Title,
		Version:  sm.Version,
		BasePath: sm.BasePath,
		Module:   module,
		Package:  pkg,
	}
	var skipped []string
	seenOps := map[string]bool{}
	seenFuncs := map[string]bool{}
	for _, ep := range sm.Endpoints {
		if ep.OperationID == "" || seenOps[ep.OperationID] {
			skipped = append(skipped, ep.ID)
			continue
		}
		seenOps[ep.OperationID] = true

		fn := uniqueIdent(exportedIdent(ep.OperationID), seenFuncs)
		seenFuncs[fn] = true

		op := operationData{
			OperationID: ep.OperationID,
			Func:        fn,
			Method:      strings.ToUpper(string(ep.Method)),
			Path:        ep.Path,
			Summary:     oneLine(ep.Summary),
		}
		seenArgs := map[string]bool{}
		for _, p := range ep.Parameters {
			ident := uniqueIdent(argIdent(p.Name), seenArgs)
			seenArgs[ident] = true
			op.Params = append(op.Params, paramData{
				Name:   p.Name,
				Ident:  ident,
				GoType: goType(p),
				In:     p.In,
			})
		}
		data.Operations = append(data.Operations, op)
	}
	return data, skipped
}

func goType(p genspec.ParameterModel) string {
	if p.In == "body" {
		return "any"
	}
	if p.Type == "array" {
		return "[]" + scalarType(p.ItemsType)
	}
	return scalarType(p.Type)
}

func scalarType(t string) string {
	switch t {
	case "string":
		return "string"
	case "integer":
		return "int64"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	default:
		return "any"
	}
}

// words splits s on every rune that cannot appear in an identifier.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func exportedIdent(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(upperFirst(w))
	}
	id := b.String()
	if id == "" || !unicode.IsLetter([]rune(id)[0]) {
		id = "Op" + id
	}
	return id
}

func argIdent(s string) string {
	ws := words(s)
	var b strings.Builder
	for i, w := range ws {
		if i == 0 {
			b.WriteString(lowerFirst(w))
			continue
		}
		b.WriteString(upperFirst(w))
	}
	id := b.String()
	if id == "" || !unicode.IsLetter([]rune(id)[0]) {
		id = "p" + upperFirst(id)
	}
	if token.IsKeyword(id) || predeclared[id] {
		id += "Param"
	}
	return id
}

// predeclared identifiers the stubs reference or that read badly as argument names.
var predeclared = map[string]bool{
	"swaggerserver": true, "http": true, "any": true, "error": true,
	"string": true, "bool": true, "int64": true, "float64": true,
	"nil": true, "true": true, "false": true, "len": true,
}

func uniqueIdent(id string, seen map[string]bool) string {
	if !seen[id] {
		return id
	}
	for i := 2; ; i++ {
		candidate := id + strconv.Itoa(i)
		if !seen[candidate] {
			return candidate
		}
	}
}

func upperFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var funcs = template.FuncMap{"quote": strconv.Quote}

var handlersTmpl = template.Must(template.New("handlers").Funcs(funcs).Parse(`// Handler stubs for {{if .Title}}{{.Title}}{{else}}the API{{end}}. Replace each body with the real implementation.

package {{.Package}}
{{if .Operations}}
import (
	"net/http"

	"github.com/mark3labs/swaggerserver"
)
{{range .Operations}}
// {{.Func}} handles {{.Method}} {{.Path}}.{{if .Summary}}
// {{.Summary}}{{end}}
func {{.Func}}({{.Signature}}) (swaggerserver.Result, error) {
	return swaggerserver.NewResult(http.StatusNotImplemented, map[string]any{"operationId": {{quote .OperationID}}}, nil), nil
}
{{end}}{{end}}`))

var registryTmpl = template.Must(template.New("registry").Funcs(funcs).Parse(`package {{.Package}}

import "github.com/mark3labs/swaggerserver"

// Registry binds every operation of the document to its handler.
func Registry() swaggerserver.Registry {
	return swaggerserver.Registry{
{{- range .Operations}}
		{{quote .OperationID}}: swaggerserver.Func({{.Func}}{{if .Params}}, {{quote .Names}}{{end}}),
{{- end}}
	}
}
`))

var registryTestTmpl = template.Must(template.New("registry_test").Funcs(funcs).Parse(`package {{.Package}}

import (
	"context"
	"os"
	"testing"

	"github.com/mark3labs/swaggerserver"
)

func TestRegistryBindsEveryOperation(t *testing.T) {
	doc, err := os.ReadFile("../swagger.yaml")
	if err != nil {
		t.Fatalf("read spec: %v", err)
	}
	if _, err := swaggerserver.Build(context.Background(), doc, Registry()); err != nil {
		t.Fatalf("build: %v", err)
	}
}
`))

var mainTmpl = template.Must(template.New("main").Funcs(funcs).Parse(`package main

import (
	"context"
	_ "embed"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/swaggerserver"

	"{{.Module}}/{{.Package}}"
)

//go:embed swagger.yaml
var spec []byte

func main() {
	table, err := swaggerserver.Build(context.Background(), spec, {{.Package}}.Registry())
	if err != nil {
		log.Fatal(err)
	}
	r := gin.Default()
	if err := table.Mount(r); err != nil {
		log.Fatal(err)
	}
	log.Fatal(r.Run(":8080"))
}
`))

var readmeTmpl = template.Must(template.New("readme").Parse(`# {{if .Title}}{{.Title}}{{else}}{{.Module}}{{end}}

Server scaffold generated by ` + "`swaggerserver scaffold`" + `.
{{if .Version}}
API version: {{.Version}}
{{end}}
- ` + "`swagger.yaml`" + ` is the document the server binds.
- ` + "`{{.Package}}/handlers.go`" + ` has one function per operation; fill them in.
- ` + "`{{.Package}}/registry.go`" + ` maps operationIds to those functions.

Routes are served under ` + "`{{if .BasePath}}{{.BasePath}}{{else}}/{{end}}`" + `:
{{range .Operations}}
- ` + "`{{.Method}} {{.Path}}`" + ` → {{.Func}}{{end}}

Run it:

` + "```" + `
go mod tidy
go run .
` + "```" + `
`))
