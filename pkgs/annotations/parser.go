package annotations

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dotle-git/argorator/pkgs/errors"
)

// Annotation is the parsed metadata for one script variable. The map key and
// Name field are always the uppercased variable name.
type Annotation struct {
	Name           string
	Type           TypeSpec
	TypeExplicit   bool // a type was spelled in the annotation
	Help           string
	Default        string
	HasDefault     bool
	Alias          string // single-dash short flag, e.g. "-v"
	Choices        []string
	Group          string
	ExclusiveGroup string
}

var (
	annotationPattern = regexp.MustCompile(`^\s*#\s*([A-Za-z_][A-Za-z0-9_]*)\s*(\(\s*[^)]*\s*\))?\s*((?:\[[^\]]*\]\s*)*):\s*(.*)$`)
	typeSpecPattern   = regexp.MustCompile(`^\(\s*([A-Za-z_]+)\s*(?:\[([^\]]*)\])?\s*\)$`)
	markerPattern     = regexp.MustCompile(`\[\s*([A-Za-z_]+)\s*:\s*([^\]]+)\]`)
	defaultPattern    = regexp.MustCompile(`^(.*?)\.\s*[Dd]efault\s*:\s*(.+)$`)
	aliasPattern      = regexp.MustCompile(`^-[A-Za-z0-9]$`)
	groupDeclPattern  = regexp.MustCompile(`(?i)^\s*#\s*(group|one of)\s+([A-Za-z_][A-Za-z0-9_]*(?:\s*,\s*[A-Za-z_][A-Za-z0-9_]*)*)(?:\s+as\s+(.+?))?\s*$`)
	descPattern       = regexp.MustCompile(`(?i)^\s*#\s*description\s*:\s*(.+)$`)
)

// Parse extracts argument annotations from the script's comments. Group
// declarations and per-variable annotations are parsed independently and
// merged; conflicts (a variable in two groups, group plus exclusive group on
// one variable, choices on an explicit non-choice type, unknown types) are
// hard errors.
func Parse(scriptText string) (map[string]*Annotation, error) {
	result := make(map[string]*Annotation)
	lines := strings.Split(scriptText, "\n")

	for i, line := range lines {
		m := annotationPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if groupDeclPattern.MatchString(line) || descPattern.MatchString(line) {
			continue
		}
		ann, err := parseAnnotationLine(i, line, m)
		if err != nil {
			return nil, err
		}
		if ann != nil {
			result[ann.Name] = ann
		}
	}

	if err := applyGroupDeclarations(lines, result); err != nil {
		return nil, err
	}
	return result, nil
}

func parseAnnotationLine(lineNum int, raw string, m []string) (*Annotation, error) {
	ann := &Annotation{
		Name: strings.ToUpper(m[1]),
		Type: DefaultType(),
	}

	if m[2] != "" {
		tm := typeSpecPattern.FindStringSubmatch(strings.TrimSpace(m[2]))
		if tm == nil {
			return nil, errors.NewDetailedScriptError(errors.ErrAnnotationSyntax,
				lineNum+1, 0, raw,
				"malformed type specification %q", m[2])
		}
		spec, ok := LookupType(tm[1])
		if !ok {
			msg := "unknown argument type %q"
			if hint := SuggestType(tm[1]); hint != "" {
				return nil, errors.NewDetailedScriptError(errors.ErrUnknownType,
					lineNum+1, 0, raw,
					msg+" (did you mean %q?)", tm[1], hint)
			}
			return nil, errors.NewDetailedScriptError(errors.ErrUnknownType,
				lineNum+1, 0, raw, msg, tm[1])
		}
		ann.Type = spec
		ann.TypeExplicit = true

		if tm[2] != "" {
			for _, c := range strings.Split(tm[2], ",") {
				if c = strings.TrimSpace(c); c != "" {
					ann.Choices = append(ann.Choices, c)
				}
			}
		}
	}

	// Choices are only meaningful on a choice type. An explicit non-choice
	// type with choices is a conflict, never a silent coercion.
	if len(ann.Choices) > 0 && ann.Type.ID() != Choice {
		return nil, errors.NewDetailedScriptError(errors.ErrChoicesConflict,
			lineNum+1, 0, raw,
			"choices given for non-choice type %s on variable %s", ann.Type.ID(), ann.Name)
	}
	if ann.Type.ID() == Choice && len(ann.Choices) == 0 {
		return nil, errors.NewDetailedScriptError(errors.ErrAnnotationSyntax,
			lineNum+1, 0, raw,
			"choice type on variable %s requires a non-empty choices list", ann.Name)
	}

	for _, marker := range markerPattern.FindAllStringSubmatch(m[3], -1) {
		key := strings.ToLower(marker[1])
		value := strings.TrimSpace(marker[2])
		switch key {
		case "alias":
			if !strings.HasPrefix(value, "-") {
				value = "-" + value
			}
			if !aliasPattern.MatchString(value) || value == "-h" {
				return nil, errors.NewDetailedScriptError(errors.ErrInvalidAlias,
					lineNum+1, 0, raw,
					"alias %q must be a single-dash single-character flag other than -h", value)
			}
			ann.Alias = value
		case "group":
			ann.Group = value
		case "exclusive_group":
			ann.ExclusiveGroup = value
		}
	}
	if ann.Group != "" && ann.ExclusiveGroup != "" {
		return nil, errors.NewDetailedScriptError(errors.ErrGroupConflict,
			lineNum+1, 0, raw,
			"variable %s cannot be in both group %q and exclusive group %q",
			ann.Name, ann.Group, ann.ExclusiveGroup)
	}

	help := strings.TrimSpace(m[4])
	if dm := defaultPattern.FindStringSubmatch(help); dm != nil {
		help = strings.TrimSpace(dm[1])
		ann.Default = strings.TrimSpace(dm[2])
		ann.HasDefault = true
	}
	ann.Help = help

	return ann, nil
}

// applyGroupDeclarations merges "# group ..." and "# one of ..." lines into
// the per-variable annotations. Unnamed groups are auto-numbered per kind.
// A variable placed in two declarations, or in a declaration conflicting
// with its own annotation markers, is an error.
func applyGroupDeclarations(lines []string, result map[string]*Annotation) error {
	groupCount := 0
	exclusiveCount := 0
	declared := make(map[string]string) // variable -> group name already assigned

	for i, line := range lines {
		m := groupDeclPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		exclusive := strings.EqualFold(m[1], "one of")

		name := strings.TrimSpace(m[3])
		if name == "" {
			if exclusive {
				exclusiveCount++
				name = "ExclusiveGroup" + strconv.Itoa(exclusiveCount)
			} else {
				groupCount++
				name = "Group" + strconv.Itoa(groupCount)
			}
		}

		for _, v := range strings.Split(m[2], ",") {
			varName := strings.ToUpper(strings.TrimSpace(v))
			if varName == "" {
				continue
			}
			if prev, ok := declared[varName]; ok {
				return errors.NewDetailedScriptError(errors.ErrGroupConflict,
					i+1, 0, line,
					"variable %s is declared in two groups (%q and %q)", varName, prev, name)
			}
			declared[varName] = name

			ann, ok := result[varName]
			if !ok {
				ann = &Annotation{Name: varName, Type: DefaultType()}
				result[varName] = ann
			}
			if err := assignGroup(ann, name, exclusive, i, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func assignGroup(ann *Annotation, name string, exclusive bool, lineNum int, raw string) error {
	conflict := func(kind string) error {
		return errors.NewDetailedScriptError(errors.ErrGroupConflict,
			lineNum+1, 0, raw,
			"variable %s already has a %s from its annotation", ann.Name, kind)
	}
	if exclusive {
		if ann.Group != "" {
			return conflict("group")
		}
		if ann.ExclusiveGroup != "" && ann.ExclusiveGroup != name {
			return conflict("different exclusive group")
		}
		ann.ExclusiveGroup = name
		return nil
	}
	if ann.ExclusiveGroup != "" {
		return conflict("exclusive group")
	}
	if ann.Group != "" && ann.Group != name {
		return conflict("different group")
	}
	ann.Group = name
	return nil
}

// ParseDescription extracts the script-level "# Description: ..." comment.
func ParseDescription(scriptText string) (string, bool) {
	for _, line := range strings.Split(scriptText, "\n") {
		if m := descPattern.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// Groups returns group name -> sorted member variables for plain groups.
func Groups(annotations map[string]*Annotation) map[string][]string {
	return collectGroups(annotations, func(a *Annotation) string { return a.Group })
}

// ExclusiveGroups returns group name -> sorted member variables for
// mutually exclusive groups.
func ExclusiveGroups(annotations map[string]*Annotation) map[string][]string {
	return collectGroups(annotations, func(a *Annotation) string { return a.ExclusiveGroup })
}

func collectGroups(annotations map[string]*Annotation, key func(*Annotation) string) map[string][]string {
	groups := make(map[string][]string)
	for name, ann := range annotations {
		if g := key(ann); g != "" {
			groups[g] = append(groups[g], name)
		}
	}
	for g := range groups {
		sort.Strings(groups[g])
	}
	return groups
}
