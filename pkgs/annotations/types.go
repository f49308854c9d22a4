// Package annotations parses comment-based argument metadata from shell
// scripts. Two comment forms contribute: per-variable annotations in Google
// docstring style ("# NAME (type) [alias: -x]: help. Default: value") and
// natural-language group declarations ("# group A, B as Name", "# one of
// X, Y as Name"). Variable names are normalized to uppercase.
package annotations

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// TypeID identifies an argument type independent of its spelled name.
type TypeID int

const (
	String TypeID = iota
	Int
	Float
	Bool
	Choice
	File
)

func (t TypeID) String() string {
	switch t {
	case String:
		return "str"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Choice:
		return "choice"
	case File:
		return "file"
	default:
		return fmt.Sprintf("TypeID(%d)", int(t))
	}
}

// TypeSpec is one registered argument type: its names (canonical spelling
// first, synonyms after) and its value validation.
type TypeSpec interface {
	ID() TypeID
	Names() []string
	Validate(value string, a *Annotation) error
}

type stringType struct{}

func (stringType) ID() TypeID      { return String }
func (stringType) Names() []string { return []string{"str", "string", "text"} }
func (stringType) Validate(string, *Annotation) error {
	return nil
}

type intType struct{}

func (intType) ID() TypeID      { return Int }
func (intType) Names() []string { return []string{"int", "integer"} }
func (intType) Validate(value string, _ *Annotation) error {
	if _, err := strconv.Atoi(value); err != nil {
		return fmt.Errorf("%q is not a valid integer", value)
	}
	return nil
}

type floatType struct{}

func (floatType) ID() TypeID      { return Float }
func (floatType) Names() []string { return []string{"float", "number", "decimal", "real"} }
func (floatType) Validate(value string, _ *Annotation) error {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return fmt.Errorf("%q is not a valid decimal number", value)
	}
	return nil
}

type boolType struct{}

func (boolType) ID() TypeID      { return Bool }
func (boolType) Names() []string { return []string{"bool", "boolean", "flag"} }
func (boolType) Validate(value string, _ *Annotation) error {
	if _, ok := NormalizeBool(value); !ok {
		return fmt.Errorf("%q is not a valid boolean (use true/false, yes/no, 1/0, on/off)", value)
	}
	return nil
}

// NormalizeBool maps the accepted boolean spellings onto "true"/"false".
func NormalizeBool(value string) (string, bool) {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return "true", true
	case "false", "0", "no", "off":
		return "false", true
	}
	return "", false
}

type choiceType struct{}

func (choiceType) ID() TypeID      { return Choice }
func (choiceType) Names() []string { return []string{"choice", "enum", "select", "option"} }
func (choiceType) Validate(value string, a *Annotation) error {
	if a == nil || len(a.Choices) == 0 {
		return fmt.Errorf("choice type requires a choices list")
	}
	for _, c := range a.Choices {
		if value == c {
			return nil
		}
	}
	return fmt.Errorf("%q is not a valid choice (options: %s)", value, strings.Join(a.Choices, ", "))
}

type fileType struct{}

func (fileType) ID() TypeID      { return File }
func (fileType) Names() []string { return []string{"file", "path", "filepath"} }
func (fileType) Validate(value string, _ *Annotation) error {
	// Existence is not checked: the path may be an output file.
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%q is not a valid file path", value)
	}
	return nil
}

var typeRegistry = map[string]TypeSpec{}

func registerType(spec TypeSpec) {
	for _, name := range spec.Names() {
		typeRegistry[strings.ToLower(name)] = spec
	}
}

func init() {
	registerType(stringType{})
	registerType(intType{})
	registerType(floatType{})
	registerType(boolType{})
	registerType(choiceType{})
	registerType(fileType{})
}

// LookupType resolves a type name or synonym, case-insensitively.
func LookupType(name string) (TypeSpec, bool) {
	spec, ok := typeRegistry[strings.ToLower(name)]
	return spec, ok
}

// DefaultType is the type assumed when an annotation names none.
func DefaultType() TypeSpec { return stringType{} }

// SupportedTypes lists every registered type name, sorted.
func SupportedTypes() []string {
	names := make([]string, 0, len(typeRegistry))
	for name := range typeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuggestType returns the closest registered type name for an unknown token,
// or "" when nothing ranks close enough.
func SuggestType(name string) string {
	matches := fuzzy.RankFindNormalizedFold(strings.ToLower(name), SupportedTypes())
	if len(matches) == 0 {
		return ""
	}
	sort.Sort(matches)
	return matches[0].Target
}
