package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ormasoftchile/clickcheck/pkg/resolve"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile runs the full pipeline on a config file:
// structural (strict YAML decode), semantic (JSON Schema), domain (Go rules).
// Environment overrides are not applied.
func ValidateFile(path string) (*Config, []*ValidationError) {
	c, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	return c, Validate(c)
}

// Validate runs the semantic and domain phases on c.
func Validate(c *Config) []*ValidationError {
	errs := validateSemantic(c)
	errs = append(errs, ValidateDomain(c)...)
	return errs
}

func semanticError(format string, args ...any) []*ValidationError {
	return []*ValidationError{{
		Phase:    "semantic",
		Message:  fmt.Sprintf(format, args...),
		Severity: "error",
	}}
}

// validateSemantic validates c against the generated JSON Schema.
func validateSemantic(c *Config) []*ValidationError {
	data, err := json.Marshal(c)
	if err != nil {
		return semanticError("marshal for schema validation: %v", err)
	}
	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return semanticError("generate schema: %v", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return semanticError("unmarshal schema: %v", err)
	}

	comp := sjsonschema.NewCompiler()
	if err := comp.AddResource("config-v0.json", schemaDoc); err != nil {
		return semanticError("add schema resource: %v", err)
	}
	sch, err := comp.Compile("config-v0.json")
	if err != nil {
		return semanticError("compile schema: %v", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return semanticError("unmarshal document: %v", err)
	}
	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return semanticError("%v", err)
		}
		var errs []*ValidationError
		for _, cause := range flattenValidationErrors(ve) {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Path:     strings.Join(cause.InstanceLocation, "/"),
				Message:  fmt.Sprintf("%v", cause.ErrorKind),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain checks rules the schema cannot express.
func ValidateDomain(c *Config) []*ValidationError {
	var errs []*ValidationError
	add := func(path, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     path,
			Message:  fmt.Sprintf(format, args...),
			Severity: "error",
		})
	}

	if u, err := url.Parse(c.AppURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("app_url", "must be an absolute http(s) URL, got %q", c.AppURL)
	}
	if c.DatabaseURL == "" {
		add("database_url", "is required")
	}

	seen := make(map[string]bool)
	for i, a := range c.Actors {
		if seen[a.Label] {
			add(fmt.Sprintf("actors[%d].label", i), "duplicate label %q", a.Label)
		}
		seen[a.Label] = true
	}
	if len(c.Actors) != 2 {
		add("actors", "exactly two actors are required, got %d", len(c.Actors))
	}

	keys := make([]string, 0, len(c.Matchers))
	for k := range c.Matchers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !slices.Contains(MatcherKeys, k) {
			add("matchers."+k, "unknown matcher chain (known: %s)", strings.Join(MatcherKeys, ", "))
			continue
		}
		if len(c.Matchers[k]) == 0 {
			add("matchers."+k, "override must list at least one expression")
			continue
		}
		if _, err := resolve.CompileChain(c.Matchers[k]); err != nil {
			add("matchers."+k, "%v", err)
		}
	}
	return errs
}
