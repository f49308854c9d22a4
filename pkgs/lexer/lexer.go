package lexer

import (
	"regexp"
	"strings"
)

// Lexical primitives for shell script scanning. Everything here is a
// best-effort, line-local recognizer: a line that fails to match is skipped,
// never rejected. Full shell parsing (quoting, command substitution,
// here-docs) is explicitly out of scope.

// specialParams is the set of shell special parameters that are never
// treated as user variables ($@, $*, $#, $?, $$, $!, $0).
var specialParams = map[string]bool{
	"@": true, "*": true, "#": true, "?": true, "$": true, "!": true, "0": true,
}

var (
	braceRefPattern   = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)[^}]*\}`)
	simpleRefPattern  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	assignPattern     = regexp.MustCompile(`^\s*(?:export\s+|local\s+|readonly\s+|declare(?:\s+-[a-zA-Z]+)?\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*=`)
	positionalPattern = regexp.MustCompile(`\$([1-9][0-9]*)`)
	varargsPattern    = regexp.MustCompile(`\$[@*]`)
	namePattern       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	forLoopPattern    = regexp.MustCompile(`(?m)^\s*for\s+([A-Za-z_][A-Za-z0-9_]*)\s+in\b`)

	singleQuotePattern = regexp.MustCompile(`'[^']*'`)
	doubleQuotePattern = regexp.MustCompile(`"[^"]*"`)
)

// IsName reports whether s is a plain shell identifier ([A-Za-z_][A-Za-z0-9_]*).
func IsName(s string) bool {
	return namePattern.MatchString(s)
}

// IsSpecialParam reports whether name is one of the shell special parameters
// excluded from variable classification.
func IsSpecialParam(name string) bool {
	return specialParams[name]
}

// ScanVariableRefs returns the set of variable names referenced via $NAME or
// ${NAME...} anywhere in text. Special parameters are excluded.
func ScanVariableRefs(text string) map[string]bool {
	refs := make(map[string]bool)
	for _, m := range braceRefPattern.FindAllStringSubmatch(text, -1) {
		refs[m[1]] = true
	}
	for _, m := range simpleRefPattern.FindAllStringSubmatch(text, -1) {
		refs[m[1]] = true
	}
	for name := range refs {
		if specialParams[name] {
			delete(refs, name)
		}
	}
	return refs
}

// ScanAssignments returns the set of variable names assigned in text via
// plain assignment or an export/local/readonly/declare prefix form.
func ScanAssignments(text string) map[string]bool {
	defined := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		if m := assignPattern.FindStringSubmatch(line); m != nil {
			defined[m[1]] = true
		}
	}
	return defined
}

// ScanPositionals returns the distinct positional indices ($1, $2, ...)
// referenced in text and whether varargs ($@ or $*) appear anywhere.
func ScanPositionals(text string) (map[int]bool, bool) {
	indices := make(map[int]bool)
	for _, m := range positionalPattern.FindAllStringSubmatch(text, -1) {
		n := 0
		for _, c := range m[1] {
			n = n*10 + int(c-'0')
		}
		indices[n] = true
	}
	return indices, varargsPattern.MatchString(text)
}

// ScanForLoopVars returns the loop variables introduced by standard Bash
// for-loops (for VAR in ...). These count as defined for classification.
func ScanForLoopVars(text string) []string {
	var vars []string
	for _, m := range forLoopPattern.FindAllStringSubmatch(text, -1) {
		vars = append(vars, m[1])
	}
	return vars
}

// StripQuoted removes single- and double-quoted substrings from a single
// line. This is a non-recursive, line-local heuristic used before counting
// braces, so braces inside string literals are not miscounted.
func StripQuoted(line string) string {
	line = singleQuotePattern.ReplaceAllString(line, "")
	return doubleQuotePattern.ReplaceAllString(line, "")
}

// BraceDelta returns the net brace depth change of a line ({ count minus
// } count), with quoted strings stripped first.
func BraceDelta(line string) int {
	stripped := StripQuoted(line)
	return strings.Count(stripped, "{") - strings.Count(stripped, "}")
}

// IsCommentLine reports whether the line's first non-blank character is #.
// The shebang line counts as a comment.
func IsCommentLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}
