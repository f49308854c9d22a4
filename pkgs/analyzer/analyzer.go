// Package analyzer classifies every variable reference in a shell script as
// defined, environment-backed, or undefined, and records positional
// parameter usage. The classification drives the dynamic CLI: undefined
// variables become required flags, environment-backed ones become optional
// flags with defaults.
package analyzer

import (
	"os"
	"sort"
	"strings"

	"github.com/dotle-git/argorator/pkgs/lexer"
	"github.com/dotle-git/argorator/pkgs/macros"
)

// Classification partitions a script's variable references.
//
// Defined, Undefined and Env are pairwise disjoint; every name in Used
// (special parameters excluded) appears in exactly one of the three.
type Classification struct {
	Defined   map[string]bool   // assigned in the script
	Used      map[string]bool   // referenced via $NAME or ${NAME...}
	Undefined []string          // used, not defined, not in the environment (sorted)
	Env       map[string]string // used, not defined, present in the environment
}

// Positionals records $N and varargs usage.
type Positionals struct {
	Indices []int // distinct $N references, sorted
	Varargs bool  // true if $@ or $* appears
}

// Classify analyzes the script against a snapshot of the current process
// environment. The snapshot is taken once per call; concurrent environment
// mutation is not observed mid-analysis.
func Classify(scriptText string) Classification {
	return ClassifyWithEnv(scriptText, environSnapshot())
}

// ClassifyWithEnv is Classify with an explicit environment, for callers
// (and tests) that need a controlled snapshot.
func ClassifyWithEnv(scriptText string, env map[string]string) Classification {
	// Comment lines are excluded from the usage scan so that annotation
	// text like "# NAME (str): ..." does not produce false references.
	used := lexer.ScanVariableRefs(stripCommentLines(scriptText))
	defined := lexer.ScanAssignments(scriptText)

	// Iteration macro sources live inside comments, which the scan above
	// excludes, but they become real references once the macro expands.
	for _, name := range macros.IterationSourceVars(scriptText) {
		used[name] = true
	}

	// Loop variables are definitions: both plain Bash for-loops and
	// iteration-macro iterators introduce their variable.
	for _, name := range lexer.ScanForLoopVars(scriptText) {
		defined[name] = true
	}
	for _, name := range macros.IterationVars(scriptText) {
		defined[name] = true
	}

	envBacked := make(map[string]string)
	var undefined []string
	for name := range used {
		if defined[name] {
			continue
		}
		if value, ok := env[name]; ok {
			envBacked[name] = value
		} else {
			undefined = append(undefined, name)
		}
	}
	sort.Strings(undefined)

	return Classification{
		Defined:   defined,
		Used:      used,
		Undefined: undefined,
		Env:       envBacked,
	}
}

// AnalyzePositionals extracts positional parameter usage from the script.
func AnalyzePositionals(scriptText string) Positionals {
	indexSet, varargs := lexer.ScanPositionals(scriptText)
	indices := make([]int, 0, len(indexSet))
	for i := range indexSet {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return Positionals{Indices: indices, Varargs: varargs}
}

// stripCommentLines blanks out full-line comments, keeping line positions
// intact. Trailing comments are left alone: distinguishing them from # inside
// strings needs more than a lexical scan.
func stripCommentLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if lexer.IsCommentLine(line) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

func environSnapshot() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}
