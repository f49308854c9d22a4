package macros

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dotle-git/argorator/pkgs/errors"
)

// StrictModeLine is the shell line emitted for the "# set strict" macro.
const StrictModeLine = "set -eou --pipefail"

var (
	endforPattern   = regexp.MustCompile(`^\s*#\s*endfor\s*$`)
	bareCallPattern = regexp.MustCompile(`^(\s*)([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	indentPattern   = regexp.MustCompile(`^\s*`)
)

// frame is one open iteration block on the expansion stack. Body lines
// accumulate until the matching close, at which point the frame renders as a
// shell for loop into the enclosing frame (or the output).
type frame struct {
	indent string
	macro  *IterationMacro
	raw    string // original macro comment line, for unbalanced re-emission
	body   []string
}

func (f *frame) render() string {
	var block []string
	block = append(block, fmt.Sprintf("%sfor %s in %s; do", f.indent, f.macro.Var, renderSource(f.macro.Source)))
	block = append(block, f.body...)
	block = append(block, f.indent+"done")
	return strings.Join(block, "\n")
}

// Expand rewrites macro comments in the script into shell control
// structures: iteration macros first, then safety macros over the result
// (trap targets must resolve against post-iteration line numbers). The
// returned text ends with a newline iff the input does. Expansion either
// succeeds completely or returns an error; there is no partial output.
func Expand(scriptText string) (string, error) {
	return ExpandWithTypes(scriptText, nil)
}

// ExpandWithTypes is Expand with annotation type information. varTypes maps
// uppercased variable names to annotation type names ("file", "array") and
// refines iteration-kind inference for function-targeted loops.
func ExpandWithTypes(scriptText string, varTypes map[string]string) (string, error) {
	hadTrailingNewline := strings.HasSuffix(scriptText, "\n")
	lines := strings.Split(scriptText, "\n")
	if hadTrailingNewline {
		lines = lines[:len(lines)-1]
	}

	lines, err := expandIteration(lines, varTypes)
	if err != nil {
		return "", err
	}
	lines, err = expandSafety(lines)
	if err != nil {
		return "", err
	}

	result := strings.Join(lines, "\n")
	if hadTrailingNewline {
		result += "\n"
	}
	return result, nil
}

// isIterationOpen reports whether the line is an iteration macro comment.
func isIterationOpen(line string) bool {
	comment, ok := parseMacroComment(0, line)
	return ok && comment.Type == Iteration
}

// expandIteration runs the stack machine over the line stream. The stack is
// explicit and heap allocated, so nesting depth is bounded by input only.
func expandIteration(lines []string, varTypes map[string]string) ([]string, error) {
	var out []string
	var stack []*frame

	emit := func(s string) {
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			top.body = append(top.body, s)
		} else {
			out = append(out, s)
		}
	}

	// Lookahead: does a matching # endfor exist for the open at index i?
	// Counts every iteration open, matching the close scan the engine runs.
	hasMatchingEndfor := func(start int) bool {
		depth := 1
		for j := start + 1; j < len(lines); j++ {
			switch {
			case isIterationOpen(lines[j]):
				depth++
			case endforPattern.MatchString(lines[j]):
				depth--
				if depth == 0 {
					return true
				}
			}
		}
		return false
	}

	closeTop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		emit(top.render())
	}

	i := 0
	for i < len(lines) {
		line := lines[i]

		if isIterationOpen(line) {
			comment, _ := parseMacroComment(i, line)
			macro, err := ParseIteration(comment, nil, varTypes)
			if err != nil {
				return nil, err
			}
			indent := indentPattern.FindString(line)

			// Direct-call form: emit a complete loop in place, no frame.
			if macro.Func != "" {
				block := []string{
					fmt.Sprintf("%sfor %s in %s; do", indent, macro.Var, renderSource(macro.Source)),
					indent + macro.callLine(macro.Func),
					indent + "done",
				}
				emit(strings.Join(block, "\n"))
				i++
				continue
			}

			if hasMatchingEndfor(i) {
				stack = append(stack, &frame{indent: indent, macro: macro, raw: line})
				i++
				continue
			}

			// No matching # endfor. If the next line opens a function, the
			// macro targets the whole function: the definition stays in
			// place and a loop calling it is appended after the body.
			if i+1 < len(lines) {
				if _, ok := ParseFunctionStart(lines[i+1]); ok {
					target, err := FindTarget(lines, i)
					if err != nil {
						return nil, err
					}
					macro.Target = target
					for j := target.StartLine; j <= target.EndLine; j++ {
						emit(lines[j])
					}
					emit("")
					emit(indentBlock(macro.FunctionLoop(), indent))
					i = target.EndLine + 1
					continue
				}
			}

			// Single-line macro: the next line is the sole body and the
			// frame closes immediately. A bare call to a function defined
			// anywhere in the script is rewritten to pass the iterator.
			single := &frame{indent: indent, macro: macro, raw: line}
			stack = append(stack, single)
			i++
			if i < len(lines) {
				body := lines[i]
				if m := bareCallPattern.FindStringSubmatch(body); m != nil && IsFunctionDefined(lines, m[2]) {
					body = fmt.Sprintf("%s%s %q", m[1], m[2], "$"+macro.Var)
				}
				single.body = append(single.body, body)
			}
			closeTop()
			i++
			continue
		}

		if endforPattern.MatchString(line) {
			if len(stack) == 0 {
				// Stray close marker: tolerated, passed through.
				emit(line)
				i++
				continue
			}
			closeTop()
			i++
			continue
		}

		emit(line)
		i++
	}

	// Unbalanced opens are re-emitted in their original comment form rather
	// than dropped: fidelity wins when the input itself is malformed.
	for len(stack) > 0 {
		top := stack[0]
		stack = stack[1:]
		out = append(out, top.raw)
		out = append(out, top.body...)
		out = append(out, top.indent+"# endfor")
	}

	return splitBlocks(out), nil
}

// splitBlocks flattens multi-line rendered blocks into individual lines so
// the safety pass sees accurate line numbers.
func splitBlocks(lines []string) []string {
	var flat []string
	for _, l := range lines {
		flat = append(flat, strings.Split(l, "\n")...)
	}
	return flat
}

func indentBlock(block, indent string) string {
	if indent == "" {
		return block
	}
	parts := strings.Split(block, "\n")
	for i, p := range parts {
		parts[i] = indent + p
	}
	return strings.Join(parts, "\n")
}

// expandSafety applies safety macros in script order over the
// iteration-expanded lines. Each macro is located and transformed before
// the next is searched, so target resolution always sees current positions.
func expandSafety(lines []string) ([]string, error) {
	generatedBefore := false

	for {
		idx := -1
		var comment MacroComment
		for j, line := range lines {
			c, ok := parseMacroComment(j, line)
			if ok && c.Type == Safety {
				idx = j
				comment = c
				break
			}
		}
		if idx < 0 {
			return lines, nil
		}

		macro, err := ParseSafety(comment)
		if err != nil {
			return nil, err
		}

		switch macro.Type {
		case SetStrict:
			lines = applySetStrict(lines, idx, generatedBefore)
		case TrapCleanup:
			target, err := FindTarget(lines, idx)
			if err != nil {
				return nil, err
			}
			if target == nil {
				return nil, errors.NewDetailedScriptError(errors.ErrNoMacroTarget,
					comment.Line+1, 0, comment.Raw,
					"no target found for trap cleanup macro")
			}
			block := trapBlock(macro, target)
			replaced := make([]string, 0, len(lines)-(target.EndLine-idx+1)+len(block))
			replaced = append(replaced, lines[:idx]...)
			replaced = append(replaced, block...)
			replaced = append(replaced, lines[target.EndLine+1:]...)
			lines = replaced
		}
		generatedBefore = true
	}
}

// applySetStrict removes the macro comment and inserts the strict-mode line
// immediately after the shebang (or at the top), followed by exactly one
// blank line. When an earlier safety macro already generated output, the
// line stays at the comment's own position so blocks keep script order.
func applySetStrict(lines []string, idx int, generatedBefore bool) []string {
	rest := make([]string, 0, len(lines)+1)
	rest = append(rest, lines[:idx]...)
	rest = append(rest, lines[idx+1:]...)

	insertAt := 0
	if len(rest) > 0 && strings.HasPrefix(rest[0], "#!") {
		insertAt = 1
	}
	if generatedBefore && idx > insertAt {
		insertAt = idx
	}
	if insertAt > len(rest) {
		insertAt = len(rest)
	}

	insertion := []string{StrictModeLine}
	if insertAt >= len(rest) || rest[insertAt] != "" {
		insertion = append(insertion, "")
	}

	result := make([]string, 0, len(rest)+len(insertion))
	result = append(result, rest[:insertAt]...)
	result = append(result, insertion...)
	result = append(result, rest[insertAt:]...)
	return result
}

// trapBlock generates the cleanup handler and trap statement replacing a
// trap cleanup macro and its target.
func trapBlock(macro *SafetyMacro, target *MacroTarget) []string {
	var handler string
	var block []string

	if target.Kind == TargetFunction {
		handler = "_cleanup_" + target.FunctionName
		bodyLines := strings.Split(target.Content, "\n")
		indent := indentPattern.FindString(bodyLines[0])
		block = append(block, indent+handler+"() {")
		block = append(block, indent+"    local exit_code=$?")
		if len(bodyLines) == 1 {
			// One-line definition: the body sits between the braces.
			line := bodyLines[0]
			open := strings.Index(line, "{")
			closing := strings.LastIndex(line, "}")
			if body := strings.TrimSpace(line[open+1 : closing]); body != "" {
				block = append(block, indent+"    "+body)
			}
			block = append(block, indent+"    exit $exit_code")
			block = append(block, indent+"}")
		} else {
			if len(bodyLines) > 2 {
				block = append(block, bodyLines[1:len(bodyLines)-1]...)
			}
			block = append(block, indent+"    exit $exit_code")
			block = append(block, bodyLines[len(bodyLines)-1])
		}
	} else {
		handler = fmt.Sprintf("_cleanup_line_%d", target.StartLine+1)
		block = append(block, handler+"() {")
		block = append(block, "    local exit_code=$?")
		block = append(block, "    "+strings.TrimSpace(target.Content))
		block = append(block, "    exit $exit_code")
		block = append(block, "}")
	}

	block = append(block, "")
	block = append(block, fmt.Sprintf("trap %s %s", handler, strings.Join(macro.Signals, " ")))
	return block
}
