// Package format holds the checkers behind the JSON Schema "format" keyword.
//
// Checkers only judge strings; every other instance type passes, matching the
// rule that a format applies to the instance kinds it names.
package format

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dlclark/regexp2"
)

// Checker validates instances for one named format.
type Checker interface {
	Name() string
	Check(v any) bool
}

// Func adapts a string predicate into a Checker. Non-string instances pass.
type Func struct {
	Key string
	Fn  func(s string) bool
}

func (f Func) Name() string { return f.Key }

func (f Func) Check(v any) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	return f.Fn(s)
}

// Regex is a Checker backed by a regular expression.
type Regex struct {
	key string
	re  *regexp2.Regexp
}

// NewRegex compiles pattern into a format checker named key.
func NewRegex(key, pattern string) (*Regex, error) {
	re, err := CompilePattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("format %q: %w", key, err)
	}
	return &Regex{key: key, re: re}, nil
}

func (r *Regex) Name() string { return r.key }

func (r *Regex) Check(v any) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	m, err := r.re.MatchString(s)
	return err == nil && m
}

// CompilePattern compiles a schema regular expression. Patterns are not
// implicitly anchored.
func CompilePattern(pattern string) (*regexp2.Regexp, error) {
	return regexp2.Compile(pattern, regexp2.None)
}

var (
	mu       sync.RWMutex
	registry = map[string]Checker{}
)

func init() {
	for _, c := range builtins() {
		registry[c.Name()] = c
	}
}

// Register adds or replaces a checker in the process-wide table.
func Register(c Checker) {
	mu.Lock()
	defer mu.Unlock()
	registry[c.Name()] = c
}

// Lookup returns the checker for name.
func Lookup(name string) (Checker, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// Names lists registered format names in lexical order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func builtins() []Checker {
	return []Checker{
		Func{"date-time", IsDateTime},
		Func{"date", IsDate},
		Func{"time", IsTime},
		Func{"duration", IsDuration},
		Func{"email", IsEmail},
		Func{"idn-email", IsIDNEmail},
		Func{"hostname", IsHostname},
		Func{"idn-hostname", IsIDNHostname},
		Func{"ipv4", IsIPv4},
		Func{"ipv6", IsIPv6},
		Func{"uri", IsURI},
		Func{"uri-reference", IsURIReference},
		Func{"iri", IsIRI},
		Func{"iri-reference", IsIRIReference},
		Func{"uri-template", IsURITemplate},
		Func{"uuid", IsUUID},
		Func{"json-pointer", IsJSONPointer},
		Func{"relative-json-pointer", IsRelativeJSONPointer},
		Func{"regex", IsRegex},
	}
}
