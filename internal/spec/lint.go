package spec

import (
	"fmt"
	"sort"
	"strings"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
)

// Severity ranks lint issues.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a problem found in a document that either prevents binding
// (errors) or degrades how requests are read (warnings).
type Issue struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	Method   string   `json:"method,omitempty" yaml:"method,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	loc := i.Path
	if i.Method != "" {
		loc = i.Method + " " + loc
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, loc, i.Message)
}

var knownLocations = map[string]bool{"query": true, "header": true, "path": true, "formData": true, "body": true}

var knownTypes = map[string]bool{"string": true, "number": true, "integer": true, "boolean": true, "array": true, "file": true}

var knownCollectionFormats = map[string]bool{"": true, "csv": true, "ssv": true, "tsv": true, "pipes": true, "multi": true}

// Lint reports constructs the binder rejects or handles only partially:
//   - a version other than 2.x, a missing operationId, an unresolved $ref
//   - unknown parameter locations, types and collection formats
//   - more than one body parameter, or body mixed with formData
//   - file parameters, which always resolve to nil
//   - path placeholders without a matching path parameter
//   - placeholders that share a segment with other text
//
// Issues are ordered by path, then method.
func Lint(doc *openapi2.T) []Issue {
	if doc == nil {
		return []Issue{{Severity: SeverityError, Message: "nil document"}}
	}
	var issues []Issue
	if major, err := MajorVersion(doc); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Message: err.Error()})
	} else if major != 2 {
		issues = append(issues, Issue{Severity: SeverityError, Message: fmt.Sprintf("unsupported swagger version %q", doc.Swagger)})
	}

	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		if err := CheckTemplate(path); err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: err.Error()})
		}
		for _, m := range Methods {
			op := item.GetOperation(strings.ToUpper(string(m)))
			if op == nil {
				continue
			}
			report := func(sev Severity, format string, args ...any) {
				issues = append(issues, Issue{Severity: sev, Path: path, Method: string(m), Message: fmt.Sprintf(format, args...)})
			}
			if strings.TrimSpace(op.OperationID) == "" {
				report(SeverityError, "operationId not provided")
			}
			params, err := EffectiveParameters(doc, item, op)
			if err != nil {
				report(SeverityError, "%v", err)
				continue
			}
			lintParameters(params, path, report)
		}
	}
	return issues
}

func lintParameters(params openapi2.Parameters, path string, report func(Severity, string, ...any)) {
	bodyCount := 0
	hasFormData := false
	declaredPath := map[string]bool{}
	for _, p := range params {
		switch {
		case !knownLocations[p.In]:
			report(SeverityWarning, "parameter %q has unknown location %q and will always be null", p.Name, p.In)
		case p.In == "body":
			bodyCount++
		case p.In == "formData":
			hasFormData = true
		case p.In == "path":
			declaredPath[p.Name] = true
		}
		if p.In == "body" {
			continue
		}
		if p.Type != "" && !knownTypes[p.Type] {
			report(SeverityWarning, "parameter %q has unknown type %q and is passed through unconverted", p.Name, p.Type)
		}
		if p.Type == "file" {
			report(SeverityWarning, "parameter %q has type file, which is not supported and resolves to null", p.Name)
		}
		if p.Type == "array" {
			if !knownCollectionFormats[p.CollectionFormat] {
				report(SeverityWarning, "parameter %q has unknown collectionFormat %q; csv is used", p.Name, p.CollectionFormat)
			}
			if p.CollectionFormat == "multi" && p.In != "query" && p.In != "formData" {
				report(SeverityWarning, "parameter %q uses collectionFormat multi outside query or formData", p.Name)
			}
		}
	}
	if bodyCount > 1 {
		report(SeverityWarning, "%d body parameters declared; only one request body exists", bodyCount)
	}
	if bodyCount > 0 && hasFormData {
		report(SeverityWarning, "body and formData parameters are mixed")
	}
	for _, name := range Placeholders(path) {
		if !declaredPath[name] {
			report(SeverityWarning, "placeholder {%s} has no path parameter and will not be passed to the handler", name)
		}
	}
}

// HasErrors reports whether issues contains an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
