package spec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
)

// BuildOption configures how the ServiceModel is built from a Swagger doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only endpoints that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.includeTags == nil {
			c.includeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes endpoints that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.excludeTags == nil {
			c.excludeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only endpoints using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		if len(methods) == 0 {
			return
		}
		if c.methods == nil {
			c.methods = make(map[HttpMethod]struct{}, len(methods))
		}
		for _, m := range methods {
			c.methods[HttpMethod(strings.ToLower(string(m)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only endpoints whose path template matches at least
// one of the provided regular expressions. Invalid patterns match nothing.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

var placeholderRe = regexp.MustCompile(`\{([^}]*)\}`)

// RoutePattern rewrites a path template into a router pattern, turning each
// {name} placeholder into a :name segment and keeping literals verbatim.
func RoutePattern(path string) string {
	return placeholderRe.ReplaceAllString(path, ":$1")
}

// CheckTemplate reports a path template the router cannot express: each
// {name} placeholder must be named and fill a whole segment, so
// /files/{name}.json and /v{major}.{minor} are rejected.
func CheckTemplate(path string) error {
	for _, seg := range strings.Split(path, "/") {
		locs := placeholderRe.FindAllStringSubmatchIndex(seg, -1)
		if len(locs) == 0 {
			continue
		}
		m := locs[0]
		if len(locs) > 1 || m[0] != 0 || m[1] != len(seg) {
			return fmt.Errorf("placeholder in segment %q must span the whole segment", seg)
		}
		if m[3] == m[2] {
			return fmt.Errorf("empty placeholder in segment %q", seg)
		}
	}
	return nil
}

// Placeholders returns the names of the {name} placeholders in a path
// template, in order.
func Placeholders(path string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(path, -1) {
		names = append(names, m[1])
	}
	return names
}

// EffectiveParameters returns the parameters that apply to op: the path
// entry's parameters followed by the operation's own. A later declaration
// with the same name replaces the earlier one in place. References of the
// form #/parameters/<name> are resolved against doc without modifying it.
func EffectiveParameters(doc *openapi2.T, item *openapi2.PathItem, op *openapi2.Operation) (openapi2.Parameters, error) {
	var out openapi2.Parameters
	index := map[string]int{}
	add := func(list openapi2.Parameters) error {
		for _, p := range list {
			if p == nil {
				continue
			}
			resolved, err := resolveParameter(doc, p)
			if err != nil {
				return err
			}
			if i, ok := index[resolved.Name]; ok {
				out[i] = resolved
				continue
			}
			index[resolved.Name] = len(out)
			out = append(out, resolved)
		}
		return nil
	}
	if item != nil {
		if err := add(item.Parameters); err != nil {
			return nil, err
		}
	}
	if op != nil {
		if err := add(op.Parameters); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func resolveParameter(doc *openapi2.T, p *openapi2.Parameter) (*openapi2.Parameter, error) {
	if p.Ref == "" {
		return p, nil
	}
	const prefix = "#/parameters/"
	if !strings.HasPrefix(p.Ref, prefix) {
		return nil, &SpecError{Code: ValidationError, Message: fmt.Sprintf("spec: unsupported parameter reference %q", p.Ref), JSONPointer: p.Ref}
	}
	name := strings.TrimPrefix(p.Ref, prefix)
	var target *openapi2.Parameter
	if doc != nil {
		target = doc.Parameters[name]
	}
	if target == nil {
		return nil, &SpecError{Code: ValidationError, Message: fmt.Sprintf("spec: unresolved parameter reference %q", p.Ref), JSONPointer: p.Ref}
	}
	if target.Ref != "" {
		return nil, &SpecError{Code: ValidationError, Message: fmt.Sprintf("spec: nested parameter reference %q", target.Ref), JSONPointer: p.Ref}
	}
	return target, nil
}

// BuildServiceModel converts a Swagger document into the Internal Model (IM).
// It applies include/exclude tag filtering and optional method/path filters.
// Paths are visited in sorted order and methods in the order of Methods.
func BuildServiceModel(ctx context.Context, doc *openapi2.T, opts ...BuildOption) (*ServiceModel, error) {
	_ = ctx
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	sm := &ServiceModel{
		Title:       safeStr(doc.Info.Title),
		Version:     safeStr(doc.Info.Version),
		Description: safeStr(doc.Info.Description),
		BasePath:    safeStr(doc.BasePath),
		Endpoints:   []EndpointModel{},
	}

	pathKeys := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, p := range pathKeys {
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		if !allowByPath(p, cfg) {
			continue
		}
		for _, m := range Methods {
			op := item.GetOperation(strings.ToUpper(string(m)))
			if op == nil {
				continue
			}
			if len(cfg.methods) > 0 {
				if _, ok := cfg.methods[m]; !ok {
					continue
				}
			}

			tags := make([]string, 0, len(op.Tags))
			for _, t := range op.Tags {
				t = strings.TrimSpace(t)
				if t != "" {
					tags = append(tags, t)
				}
			}
			if !allowByTags(tags, cfg) {
				continue
			}

			params, err := EffectiveParameters(doc, item, op)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", m, p, err)
			}
			models := make([]ParameterModel, 0, len(params))
			for _, param := range params {
				models = append(models, toParameterModel(param))
			}

			sm.Endpoints = append(sm.Endpoints, EndpointModel{
				ID:          string(m) + " " + p,
				Method:      m,
				Path:        p,
				Pattern:     RoutePattern(p),
				OperationID: safeStr(op.OperationID),
				Summary:     safeStr(op.Summary),
				Tags:        tags,
				Parameters:  models,
			})
		}
	}

	sm.Tags = collectSortedTags(sm.Endpoints)
	return sm, nil
}

func allowByPath(path string, cfg *buildConfig) bool {
	if len(cfg.pathRes) == 0 {
		return true
	}
	for _, re := range cfg.pathRes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	hasInclude := len(cfg.includeTags) > 0
	if hasInclude {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(cfg.excludeTags) > 0 {
		for _, t := range tags {
			if _, blocked := cfg.excludeTags[t]; blocked {
				return false
			}
		}
	}
	return true
}

func safeStr(s string) string { return strings.TrimSpace(s) }

func toParameterModel(p *openapi2.Parameter) ParameterModel {
	pm := ParameterModel{
		Name:             safeStr(p.Name),
		In:               safeStr(p.In),
		Type:             safeStr(p.Type),
		CollectionFormat: safeStr(p.CollectionFormat),
		Required:         p.Required,
		Default:          p.Default,
	}
	if p.Items != nil && p.Items.Value != nil {
		pm.ItemsType = p.Items.Value.Type
	}
	if p.In == "body" && pm.Default == nil && p.Schema != nil && p.Schema.Value != nil {
		pm.Default = p.Schema.Value.Default
	}
	return pm
}

func collectSortedTags(endpoints []EndpointModel) []string {
	set := make(map[string]struct{})
	for _, ep := range endpoints {
		for _, t := range ep.Tags {
			if t = strings.TrimSpace(t); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
