// Package compiler turns an analyzed script plus resolved argument values
// into the final shell text: expanded macros with variable assignments
// injected at the top. It is purely textual; execution lives elsewhere.
package compiler

import (
	"regexp"
	"sort"
	"strings"
)

// InjectionMarker starts the block of generated assignments so that other
// transforms (and curious users) can recognize it.
const InjectionMarker = "# argorator: injected variable definitions"

var safeValuePattern = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote renders a value safe for use in a shell assignment. Values made of
// unambiguous characters pass through bare; everything else is wrapped in
// single quotes with embedded single quotes escaped.
func Quote(value string) string {
	if value == "" {
		return "''"
	}
	if safeValuePattern.MatchString(value) {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// InjectAssignments inserts a marker comment plus one NAME=value line per
// assignment at the top of the script, after the shebang when one exists.
// Names are emitted sorted so output is deterministic. The input's trailing
// newline is preserved.
func InjectAssignments(scriptText string, assignments map[string]string) string {
	if len(assignments) == 0 {
		return scriptText
	}

	block := []string{InjectionMarker}
	for _, name := range sortedNames(assignments) {
		block = append(block, name+"="+Quote(assignments[name]))
	}
	injection := strings.Join(block, "\n") + "\n"

	lines := strings.Split(scriptText, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "#!") {
		rest := strings.Join(lines[1:], "\n")
		return lines[0] + "\n" + injection + rest
	}
	return injection + scriptText
}

// ExportLines renders assignments as "export NAME=value" lines for the
// export subcommand, suitable for eval in a parent shell.
func ExportLines(assignments map[string]string) string {
	var lines []string
	for _, name := range sortedNames(assignments) {
		lines = append(lines, "export "+name+"="+Quote(assignments[name]))
	}
	return strings.Join(lines, "\n")
}

var assignmentLinePattern = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_]*=`)

// EchoMode rewrites the compiled script so every command line is echoed
// instead of executed. The shebang, the injection block, blank lines and
// comments pass through so the output stays a readable, runnable preview.
func EchoMode(scriptText string) string {
	lines := strings.Split(scriptText, "\n")
	hadTrailingNewline := strings.HasSuffix(scriptText, "\n")
	if hadTrailingNewline {
		lines = lines[:len(lines)-1]
	}

	var out []string
	i := 0
	if i < len(lines) && strings.HasPrefix(lines[i], "#!") {
		out = append(out, lines[i])
		i++
	}
	if i < len(lines) && strings.HasPrefix(lines[i], InjectionMarker) {
		out = append(out, lines[i])
		i++
		for i < len(lines) && assignmentLinePattern.MatchString(lines[i]) {
			out = append(out, lines[i])
			i++
		}
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			out = append(out, line)
			continue
		}
		escaped := strings.ReplaceAll(line, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		out = append(out, `echo "`+escaped+`"`)
	}

	result := strings.Join(out, "\n")
	if hadTrailingNewline {
		result += "\n"
	}
	return result
}

func sortedNames(assignments map[string]string) []string {
	names := make([]string, 0, len(assignments))
	for name := range assignments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
