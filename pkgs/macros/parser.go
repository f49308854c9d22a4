package macros

import (
	"regexp"
	"strings"

	"github.com/dotle-git/argorator/pkgs/errors"
	"github.com/dotle-git/argorator/pkgs/lexer"
)

var (
	iterDetectPattern = regexp.MustCompile(`(?i)^for\s+\S+\s+in\s+\S+`)
	iterPattern       = regexp.MustCompile(`(?i)^for\s+([A-Za-z_][A-Za-z0-9_]*)\s+in\s+([^|]+?)(?:\s*\|\s*with\s+(.+))?$`)
	funcSuffixPattern = regexp.MustCompile(`\s*->\s*([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	asSuffixPattern   = regexp.MustCompile(`(?i)^(.+?)\s+as\s+(file|array)$`)
	setPattern        = regexp.MustCompile(`(?i)^set\s+([a-z_]+)$`)
	trapPattern       = regexp.MustCompile(`(?i)^trap\s+([a-z_]+)((?:\s+[A-Za-z0-9]+)*)$`)
)

// FindMacroComments scans the script for full-line comments whose content
// matches a macro grammar, in line order.
func FindMacroComments(scriptText string) []MacroComment {
	var found []MacroComment
	for i, line := range strings.Split(scriptText, "\n") {
		comment, ok := parseMacroComment(i, line)
		if ok {
			found = append(found, comment)
		}
	}
	return found
}

func parseMacroComment(lineNum int, line string) (MacroComment, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "#!") {
		return MacroComment{}, false
	}
	content := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))

	var macroType MacroType
	switch {
	case iterDetectPattern.MatchString(content):
		macroType = Iteration
	case setPattern.MatchString(content) || trapPattern.MatchString(content):
		macroType = Safety
	default:
		return MacroComment{}, false
	}

	return MacroComment{
		Line:    lineNum,
		Content: content,
		Raw:     line,
		Type:    macroType,
	}, true
}

// ParseIteration parses an iteration macro comment. varTypes maps variable
// names to annotation type names and refines the inferred iteration kind
// (a source variable annotated as file iterates its lines). An explicit
// "as file"/"as array" suffix on the source wins over both.
func ParseIteration(comment MacroComment, target *MacroTarget, varTypes map[string]string) (*IterationMacro, error) {
	content := comment.Content

	// The "-> FUNC" direct-call suffix short-circuits target resolution.
	funcName := ""
	if m := funcSuffixPattern.FindStringSubmatch(content); m != nil {
		funcName = m[1]
		content = content[:len(content)-len(m[0])]
	}

	m := iterPattern.FindStringSubmatch(content)
	if m == nil {
		return nil, errors.NewDetailedScriptError(errors.ErrMacroSyntax,
			comment.Line+1, 0, comment.Raw,
			"invalid iteration macro syntax: %q", comment.Content)
	}

	macro := &IterationMacro{
		Comment: comment,
		Target:  target,
		Var:     m[1],
		Source:  strings.TrimSpace(m[2]),
		Func:    funcName,
	}
	if m[3] != "" {
		macro.Params = strings.Fields(m[3])
	}

	if as := asSuffixPattern.FindStringSubmatch(macro.Source); as != nil {
		macro.Source = strings.TrimSpace(as[1])
		macro.SourceType = strings.ToLower(as[2])
	}

	switch macro.SourceType {
	case "file":
		macro.Kind = KindFileLines
	case "array":
		macro.Kind = KindArray
	default:
		macro.Kind = inferIterationKind(macro.Source)
		enhanceKindFromTypes(macro, varTypes)
	}
	return macro, nil
}

// enhanceKindFromTypes refines the iteration kind when the source is a
// variable with a known annotation type.
func enhanceKindFromTypes(macro *IterationMacro, varTypes map[string]string) {
	if len(varTypes) == 0 {
		return
	}
	name := sourceVariableName(macro.Source)
	if name == "" {
		return
	}
	switch varTypes[strings.ToUpper(name)] {
	case "file":
		macro.Kind = KindFileLines
	case "array", "list":
		macro.Kind = KindArray
	}
}

// sourceVariableName extracts the variable name from a $VAR, ${VAR} or bare
// NAME source expression, or returns "".
func sourceVariableName(source string) string {
	s := source
	if strings.HasPrefix(s, "$") {
		s = s[1:]
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			s = s[1 : len(s)-1]
		}
	}
	if lexer.IsName(s) {
		return s
	}
	return ""
}

// ParseSafety parses a safety macro comment, validating the subtype and any
// trap signal names.
func ParseSafety(comment MacroComment) (*SafetyMacro, error) {
	if m := setPattern.FindStringSubmatch(comment.Content); m != nil {
		if !strings.EqualFold(m[1], "strict") {
			return nil, errors.NewDetailedScriptError(errors.ErrInvalidSafetyMacro,
				comment.Line+1, 0, comment.Raw,
				"unknown safety macro type: %q", comment.Content)
		}
		return &SafetyMacro{Comment: comment, Type: SetStrict}, nil
	}

	if m := trapPattern.FindStringSubmatch(comment.Content); m != nil {
		if !strings.EqualFold(m[1], "cleanup") {
			return nil, errors.NewDetailedScriptError(errors.ErrInvalidSafetyMacro,
				comment.Line+1, 0, comment.Raw,
				"unknown safety macro type: %q", comment.Content)
		}
		signals := strings.Fields(m[2])
		if len(signals) == 0 {
			signals = append([]string(nil), DefaultTrapSignals...)
		}
		for i, sig := range signals {
			if !IsValidSignal(sig) {
				return nil, errors.NewDetailedScriptError(errors.ErrInvalidSignal,
					comment.Line+1, 0, comment.Raw,
					"invalid signal name %q in trap cleanup macro", sig)
			}
			signals[i] = strings.ToUpper(sig)
		}
		return &SafetyMacro{Comment: comment, Type: TrapCleanup, Signals: signals}, nil
	}

	return nil, errors.NewDetailedScriptError(errors.ErrInvalidSafetyMacro,
		comment.Line+1, 0, comment.Raw,
		"unknown safety macro type: %q", comment.Content)
}

// FindTarget resolves what the macro on macroLine applies to: the function
// defined on the following line, or that single line. Returns nil when the
// macro is the last line of the script.
func FindTarget(lines []string, macroLine int) (*MacroTarget, error) {
	targetLine := macroLine + 1
	if targetLine >= len(lines) {
		return nil, nil
	}

	if name, ok := ParseFunctionStart(lines[targetLine]); ok {
		end, err := FindFunctionEnd(lines, targetLine)
		if err != nil {
			return nil, err
		}
		return &MacroTarget{
			Kind:         TargetFunction,
			StartLine:    targetLine,
			EndLine:      end,
			Content:      strings.Join(lines[targetLine:end+1], "\n"),
			FunctionName: name,
		}, nil
	}

	return &MacroTarget{
		Kind:      TargetLine,
		StartLine: targetLine,
		EndLine:   targetLine,
		Content:   lines[targetLine],
	}, nil
}

// IterationVars returns the iterator variable of every iteration macro in
// the script. Used by the variable classifier so iterators do not surface
// as undefined CLI arguments. Malformed macros are skipped here; expansion
// reports them.
func IterationVars(scriptText string) []string {
	var vars []string
	for _, comment := range FindMacroComments(scriptText) {
		if comment.Type != Iteration {
			continue
		}
		macro, err := ParseIteration(comment, nil, nil)
		if err != nil {
			continue
		}
		vars = append(vars, macro.Var)
	}
	return vars
}

// IterationSourceVars returns the variable names referenced by iteration
// macro sources ($LIST, ${LIST} or a bare LIST). These live inside comments,
// which the classifier otherwise excludes, yet they are real references once
// the macro expands.
func IterationSourceVars(scriptText string) []string {
	var vars []string
	for _, comment := range FindMacroComments(scriptText) {
		if comment.Type != Iteration {
			continue
		}
		macro, err := ParseIteration(comment, nil, nil)
		if err != nil {
			continue
		}
		if name := sourceVariableName(macro.Source); name != "" {
			vars = append(vars, name)
		}
	}
	return vars
}
