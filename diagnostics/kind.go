// Package diagnostics turns raw toolchain failure output into structured records.
package diagnostics

import (
	"fmt"
	"regexp"
)

// Kind classifies a failure. The set is closed.
type Kind int

const (
	KindUnknown Kind = iota
	KindUndefinedName
	KindMissingAttribute
	KindImportFailure
	KindTypeMismatch
	KindSyntaxError
)

// String returns the stable tag for the kind.
func (k Kind) String() string {
	switch k {
	case KindUndefinedName:
		return "undefined-name"
	case KindMissingAttribute:
		return "missing-attribute"
	case KindImportFailure:
		return "import-failure"
	case KindTypeMismatch:
		return "type-mismatch"
	case KindSyntaxError:
		return "syntax-error"
	default:
		return "unknown"
	}
}

// MarshalText lets kinds appear as tags in JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// KindOf maps a python exception name to its kind.
func KindOf(errorName string) Kind {
	if k, ok := errorKinds[errorName]; ok {
		return k
	}
	return KindUnknown
}

var errorKinds = map[string]Kind{
	"NameError":           KindUndefinedName,
	"UnboundLocalError":   KindUndefinedName,
	"AttributeError":      KindMissingAttribute,
	"ImportError":         KindImportFailure,
	"ModuleNotFoundError": KindImportFailure,
	"TypeError":           KindTypeMismatch,
	"SyntaxError":         KindSyntaxError,
	"IndentationError":    KindSyntaxError,
	"TabError":            KindSyntaxError,
}

// kindRule holds the per-kind symbol extraction and suggestion.
type kindRule struct {
	symbol  *regexp.Regexp
	suggest func(symbol string) string
}

// SanctionedImport is the only import the generated scenes should need.
const SanctionedImport = "from manim import *"

var kindRules = map[Kind]kindRule{
	KindUndefinedName: {
		symbol: regexp.MustCompile(`name '(\w+)'`),
		suggest: func(symbol string) string {
			return fmt.Sprintf("Class/function '%s' does not exist in Manim. "+
				"Validate it against the documentation reference before using it again.", symbol)
		},
	},
	KindMissingAttribute: {
		symbol: regexp.MustCompile(`no attribute '(\w+)'`),
		suggest: func(symbol string) string {
			return fmt.Sprintf("Method/property '%s' does not exist. "+
				"Validate it against the documentation reference before using it again.", symbol)
		},
	},
	KindImportFailure: {
		symbol: regexp.MustCompile(`import name '(\w+)'`),
		suggest: func(symbol string) string {
			if symbol != "" {
				return fmt.Sprintf("'%s' cannot be imported. Restrict imports to `%s`.", symbol, SanctionedImport)
			}
			return fmt.Sprintf("Invalid import. Restrict imports to `%s`.", SanctionedImport)
		},
	},
	KindTypeMismatch: {
		suggest: func(string) string {
			return "Incorrect arguments or types. Check the Manim documentation for correct usage."
		},
	},
	KindSyntaxError: {
		suggest: func(string) string {
			return "Python syntax error. Check for missing parentheses, colons, or indentation."
		},
	},
	KindUnknown: {
		suggest: func(string) string {
			return "Check syntax and the Manim documentation."
		},
	},
}

func ruleFor(k Kind) kindRule {
	if r, ok := kindRules[k]; ok {
		return r
	}
	return kindRules[KindUnknown]
}
