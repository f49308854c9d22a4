package macros

import (
	"regexp"
	"strings"

	"github.com/dotle-git/argorator/pkgs/errors"
	"github.com/dotle-git/argorator/pkgs/lexer"
)

// Function boundary detection. Recognizes the three Bash definition forms
// and finds the matching closing brace by line-local depth counting with
// quoted strings stripped. This is a heuristic, not a shell tokenizer.

var functionStartPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*\)\s*\{`),             // name() {
	regexp.MustCompile(`^\s*function\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*\)\s*\{`), // function name() {
	regexp.MustCompile(`^\s*function\s+([A-Za-z_][A-Za-z0-9_]*)\s*\{`),           // function name {
}

// FunctionBlock represents a located function definition. Line numbers are
// 0-based and inclusive.
type FunctionBlock struct {
	Name      string
	StartLine int
	EndLine   int
	Content   string // verbatim source of the definition
}

// ParseFunctionStart returns the function name if the line opens a function
// definition.
func ParseFunctionStart(line string) (string, bool) {
	for _, pattern := range functionStartPatterns {
		if m := pattern.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// FindFunctionEnd locates the closing brace of a function starting at
// startLine. Comment lines inside the body are skipped so their braces are
// ignored. Returns an UNCLOSED_FUNCTION error when depth never returns to
// zero before end of input.
func FindFunctionEnd(lines []string, startLine int) (int, error) {
	depth := lexer.BraceDelta(lines[startLine])
	if depth == 0 {
		// Single-line function definition
		return startLine, nil
	}

	for i := startLine + 1; i < len(lines); i++ {
		if lexer.IsCommentLine(lines[i]) {
			continue
		}
		depth += lexer.BraceDelta(lines[i])
		if depth == 0 {
			return i, nil
		}
	}

	return 0, errors.NewDetailedScriptError(errors.ErrUnclosedFunction,
		startLine+1, 0, lines[startLine],
		"unclosed function: no matching '}' before end of script")
}

// FindFunctions locates every function definition in the script. Functions
// whose closing brace cannot be found are skipped; callers that need the
// structural error should use FindFunctionEnd directly.
func FindFunctions(scriptText string) []FunctionBlock {
	lines := strings.Split(scriptText, "\n")
	var functions []FunctionBlock

	for i := 0; i < len(lines); i++ {
		name, ok := ParseFunctionStart(lines[i])
		if !ok {
			continue
		}
		end, err := FindFunctionEnd(lines, i)
		if err != nil {
			continue
		}
		functions = append(functions, FunctionBlock{
			Name:      name,
			StartLine: i,
			EndLine:   end,
			Content:   strings.Join(lines[i:end+1], "\n"),
		})
		i = end
	}
	return functions
}

// IsFunctionDefined reports whether a function with the given name is
// defined anywhere in the lines.
func IsFunctionDefined(lines []string, name string) bool {
	for _, line := range lines {
		if got, ok := ParseFunctionStart(line); ok && got == name {
			return true
		}
	}
	return false
}
