package jsonskema

import (
	"github.com/reoring/jsonskema/internal/format"
)

// FormatChecker validates instances for one named format. Checkers only
// judge the instance kinds they name and pass everything else.
type FormatChecker = format.Checker

// RegisterFormat adds or replaces a process-wide format checker. Compiled
// schemas look checkers up at evaluation time.
func RegisterFormat(c FormatChecker) { format.Register(c) }

// FormatFunc adapts a string predicate into a FormatChecker.
func FormatFunc(name string, fn func(string) bool) FormatChecker {
	return format.Func{Key: name, Fn: fn}
}

// RegexFormat builds a checker that accepts strings matching pattern.
func RegexFormat(name, pattern string) (FormatChecker, error) {
	return format.NewRegex(name, pattern)
}

// Formats lists the registered format names.
func Formats() []string { return format.Names() }
