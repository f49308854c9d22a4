package macros

import (
	"fmt"
	"strings"

	"github.com/dotle-git/argorator/pkgs/lexer"
)

// MacroType discriminates the two macro families.
type MacroType int

const (
	Iteration MacroType = iota
	Safety
)

func (t MacroType) String() string {
	switch t {
	case Iteration:
		return "iteration"
	case Safety:
		return "safety"
	default:
		return fmt.Sprintf("MacroType(%d)", int(t))
	}
}

// TargetKind discriminates what a macro applies to.
type TargetKind int

const (
	TargetFunction TargetKind = iota
	TargetLine
)

// MacroComment is a full-line comment recognized as a macro.
type MacroComment struct {
	Line    int    // 0-based line number
	Content string // comment text with leading # and whitespace stripped
	Raw     string // the original line
	Type    MacroType
}

// MacroTarget is the code a macro applies to: either the function defined on
// the following line, or that single line itself. Line numbers are 0-based
// and inclusive.
type MacroTarget struct {
	Kind         TargetKind
	StartLine    int
	EndLine      int
	Content      string // verbatim source of the target
	FunctionName string // set for function targets
}

// IterationKind classifies the shape of an iteration source.
type IterationKind int

const (
	KindArray IterationKind = iota
	KindFileLines
	KindPattern
	KindRange
	KindDirectory
)

func (k IterationKind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindFileLines:
		return "file_lines"
	case KindPattern:
		return "pattern"
	case KindRange:
		return "range"
	case KindDirectory:
		return "directory"
	default:
		return fmt.Sprintf("IterationKind(%d)", int(k))
	}
}

// IterationMacro is a parsed "# for VAR in SOURCE" macro.
type IterationMacro struct {
	Comment    MacroComment
	Target     *MacroTarget
	Var        string        // iterator variable
	Source     string        // raw source expression
	SourceType string        // explicit "as file" / "as array" override, if any
	Kind       IterationKind // inferred or overridden iteration kind
	Params     []string      // extra parameters from a "| with p1 p2" clause
	Func       string        // direct-call function from a "-> FUNC" suffix
}

// SafetyType discriminates safety macro subtypes.
type SafetyType int

const (
	SetStrict SafetyType = iota
	TrapCleanup
)

// SafetyMacro is a parsed "# set strict" or "# trap cleanup [SIGNALS]" macro.
type SafetyMacro struct {
	Comment MacroComment
	Type    SafetyType
	Signals []string     // trap signals; defaults applied at parse time
	Target  *MacroTarget // required for trap cleanup, nil for set strict
}

// renderSource renders an iteration source expression for a generated loop:
// a bare identifier becomes ${NAME}, anything else (globs, command
// substitutions, brace ranges, arrays) is emitted verbatim.
func renderSource(source string) string {
	if lexer.IsName(source) {
		return "${" + source + "}"
	}
	return source
}

// inferIterationKind classifies a source expression by shape. A bare or
// $-prefixed variable whose name mentions FILE or INPUT iterates file lines;
// glob metacharacters mean a pattern; {a..b} is a range; a trailing slash is
// a directory listing; everything else is treated as an array.
func inferIterationKind(source string) IterationKind {
	upper := strings.ToUpper(source)
	if strings.HasPrefix(source, "$") && (strings.Contains(upper, "FILE") || strings.Contains(upper, "INPUT")) {
		return KindFileLines
	}
	if strings.ContainsAny(source, "*?[") {
		return KindPattern
	}
	if strings.HasPrefix(source, "{") && strings.HasSuffix(source, "}") && strings.Contains(source, "..") {
		return KindRange
	}
	if strings.HasSuffix(source, "/") {
		return KindDirectory
	}
	return KindArray
}

// callLine builds the function invocation for a generated loop body:
// the iterator is passed first, then any additional parameters, all quoted.
func (m *IterationMacro) callLine(funcName string) string {
	parts := []string{funcName, fmt.Sprintf("%q", "$"+m.Var)}
	for _, p := range m.Params {
		parts = append(parts, fmt.Sprintf("%q", p))
	}
	return strings.Join(parts, " ")
}

// FunctionLoop generates the loop appended after a function-targeted macro's
// function definition. File-line sources read line by line; everything else
// uses a plain for loop.
func (m *IterationMacro) FunctionLoop() string {
	call := m.callLine(m.Target.FunctionName)
	if m.Kind == KindFileLines {
		return fmt.Sprintf("while IFS= read -r %s; do\n    %s\ndone < %s", m.Var, call, m.Source)
	}
	return fmt.Sprintf("for %s in %s; do\n    %s\ndone", m.Var, renderSource(m.Source), call)
}
