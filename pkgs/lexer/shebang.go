package lexer

import (
	"regexp"
	"strings"
)

var shPattern = regexp.MustCompile(`\b(sh|dash)\b`)

// Shebang returns the interpreter portion of the script's shebang line
// (the text after #!) and whether a shebang is present.
func Shebang(text string) (string, bool) {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	if !strings.HasPrefix(line, "#!") {
		return "", false
	}
	return strings.TrimSpace(line[2:]), true
}

// Interpreter returns the shell command used to execute the script. A
// shebang is honored and normalized to a common shell path; bash is the
// default when no shebang is present or the shell is unknown.
func Interpreter(text string) []string {
	shebang, ok := Shebang(text)
	if !ok {
		return []string{"/bin/bash"}
	}
	switch {
	case strings.Contains(shebang, "bash"):
		return []string{"/bin/bash"}
	case shPattern.MatchString(shebang):
		return []string{"/bin/sh"}
	case strings.Contains(shebang, "zsh"):
		return []string{"/bin/zsh"}
	case strings.Contains(shebang, "ksh"):
		return []string{"/bin/ksh"}
	default:
		return []string{"/bin/bash"}
	}
}
