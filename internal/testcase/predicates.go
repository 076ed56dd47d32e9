package testcase

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"
	"github.com/segmentio/encoding/json"
	"github.com/tidwall/gjson"

	"github.com/giantswarm/load-testing/internal/transport"
)

// StatusIn passes when the status code is one of codes.
func StatusIn(codes ...int) Predicate {
	return func(r *transport.Response) bool {
		return slices.Contains(codes, r.Status)
	}
}

// StatusBelow passes when the status code is below limit or explicitly allowed.
// A transport failure (status 0) never passes.
func StatusBelow(limit int, allow ...int) Predicate {
	return func(r *transport.Response) bool {
		if r.Status == 0 {
			return false
		}
		return r.Status < limit || slices.Contains(allow, r.Status)
	}
}

// MaxDuration passes when the request finished strictly within d.
// A transport failure never passes, however quickly it failed.
func MaxDuration(d time.Duration) Predicate {
	return func(r *transport.Response) bool {
		return received(r) && r.Duration < d
	}
}

// HeaderContains passes when the named header contains substr.
func HeaderContains(name, substr string) Predicate {
	return func(r *transport.Response) bool {
		return received(r) && strings.Contains(r.Header(name), substr)
	}
}

// BodyPresent passes when a body was received, even an empty one.
func BodyPresent() Predicate {
	return func(r *transport.Response) bool {
		return r.Body != nil
	}
}

// BodyContains passes when the body contains substr.
func BodyContains(substr string) Predicate {
	return func(r *transport.Response) bool {
		return received(r) && bytes.Contains(r.Body, []byte(substr))
	}
}

// BodyMatches passes when the body matches re.
func BodyMatches(re *regexp.Regexp) Predicate {
	return func(r *transport.Response) bool {
		return received(r) && re.Match(r.Body)
	}
}

// MinBodyLength passes when the body is at least n bytes long.
func MinBodyLength(n int) Predicate {
	return func(r *transport.Response) bool {
		return received(r) && len(r.Body) >= n
	}
}

// JSONValid passes when the body is a valid JSON document.
func JSONValid() Predicate {
	return func(r *transport.Response) bool {
		return len(r.Body) > 0 && json.Valid(r.Body)
	}
}

// JSONField passes when the body is JSON and path exists in it.
// Paths use gjson syntax, e.g. "status" or "data.items.0.id".
func JSONField(path string) Predicate {
	return func(r *transport.Response) bool {
		if !gjson.ValidBytes(r.Body) {
			return false
		}
		return gjson.GetBytes(r.Body, path).Exists()
	}
}

// JMESPath passes when the compiled expression evaluates to a truthy value
// against the JSON body.
func JMESPath(expr *jmespath.JMESPath) Predicate {
	return func(r *transport.Response) bool {
		var doc any
		if err := json.Unmarshal(r.Body, &doc); err != nil {
			return false
		}
		result, err := expr.Search(doc)
		if err != nil {
			return false
		}
		return truthy(result)
	}
}

// All passes when every predicate passes.
func All(preds ...Predicate) Predicate {
	return func(r *transport.Response) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// received reports whether the server answered at all.
func received(r *transport.Response) bool {
	return r != nil && r.Err == nil && r.Status != 0
}

// truthy follows JMESPath truthiness: false, null and empty strings,
// arrays and objects are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Rule is the declarative form of a check predicate as written in suite
// files. Every field that is set must pass.
type Rule struct {
	Status         []int          `yaml:"status,omitempty" json:"status,omitempty"`
	StatusBelow    int            `yaml:"status_below,omitempty" json:"status_below,omitempty"`
	AllowStatus    []int          `yaml:"allow_status,omitempty" json:"allow_status,omitempty"`
	MaxDuration    time.Duration  `yaml:"max_duration,omitempty" json:"max_duration,omitempty"`
	HeaderContains *HeaderMatcher `yaml:"header_contains,omitempty" json:"header_contains,omitempty"`
	BodyPresent    bool           `yaml:"body_present,omitempty" json:"body_present,omitempty"`
	BodyContains   string         `yaml:"body_contains,omitempty" json:"body_contains,omitempty"`
	BodyMatches    string         `yaml:"body_matches,omitempty" json:"body_matches,omitempty"`
	MinBodyLength  int            `yaml:"min_body_length,omitempty" json:"min_body_length,omitempty"`
	JSONValid      bool           `yaml:"json_valid,omitempty" json:"json_valid,omitempty"`
	JSONField      string         `yaml:"json_field,omitempty" json:"json_field,omitempty"`
	JMESPath       string         `yaml:"jmespath,omitempty" json:"jmespath,omitempty"`
}

// HeaderMatcher matches a substring of a response header.
type HeaderMatcher struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Predicate compiles the rule into a predicate.
func (r Rule) Predicate() (Predicate, error) {
	var preds []Predicate

	if len(r.Status) > 0 {
		preds = append(preds, StatusIn(r.Status...))
	}
	if r.StatusBelow > 0 {
		preds = append(preds, StatusBelow(r.StatusBelow, r.AllowStatus...))
	} else if len(r.AllowStatus) > 0 {
		return nil, fmt.Errorf("allow_status requires status_below")
	}
	if r.MaxDuration > 0 {
		preds = append(preds, MaxDuration(r.MaxDuration))
	}
	if h := r.HeaderContains; h != nil {
		if h.Name == "" {
			return nil, fmt.Errorf("header_contains requires a header name")
		}
		preds = append(preds, HeaderContains(h.Name, h.Value))
	}
	if r.BodyPresent {
		preds = append(preds, BodyPresent())
	}
	if r.BodyContains != "" {
		preds = append(preds, BodyContains(r.BodyContains))
	}
	if r.BodyMatches != "" {
		re, err := regexp.Compile(r.BodyMatches)
		if err != nil {
			return nil, fmt.Errorf("invalid body_matches pattern: %w", err)
		}
		preds = append(preds, BodyMatches(re))
	}
	if r.MinBodyLength > 0 {
		preds = append(preds, MinBodyLength(r.MinBodyLength))
	}
	if r.JSONValid {
		preds = append(preds, JSONValid())
	}
	if r.JSONField != "" {
		preds = append(preds, JSONField(r.JSONField))
	}
	if r.JMESPath != "" {
		expr, err := jmespath.Compile(r.JMESPath)
		if err != nil {
			return nil, fmt.Errorf("invalid jmespath expression: %w", err)
		}
		preds = append(preds, JMESPath(expr))
	}

	switch len(preds) {
	case 0:
		return nil, fmt.Errorf("rule has no conditions")
	case 1:
		return preds[0], nil
	default:
		return All(preds...), nil
	}
}
