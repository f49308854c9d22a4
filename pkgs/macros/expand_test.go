package macros

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func expandOrFail(t *testing.T, input string) string {
	t.Helper()
	got, err := Expand(input)
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	return got
}

func assertExpand(t *testing.T, input, want string) {
	t.Helper()
	got := expandOrFail(t, input)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandBlockMacro(t *testing.T) {
	input := "# for item in LIST\necho \"$item\"\n# endfor"
	want := "for item in ${LIST}; do\necho \"$item\"\ndone"
	assertExpand(t, input, want)
}

func TestExpandNestedBlocks(t *testing.T) {
	input := "# for a in X\n# for b in Y\necho $a $b\n# endfor\n# endfor"
	want := "for a in ${X}; do\nfor b in ${Y}; do\necho $a $b\ndone\ndone"
	assertExpand(t, input, want)
}

func TestExpandSingleLineAutoClose(t *testing.T) {
	input := "# for f in *.sh\necho $f"
	want := "for f in *.sh; do\necho $f\ndone"
	assertExpand(t, input, want)
}

func TestExpandSourceRendering(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"bare identifier", "LIST", "${LIST}"},
		{"glob pattern", "*.txt", "*.txt"},
		{"variable reference", "$FILES", "$FILES"},
		{"brace range", "{1..5}", "{1..5}"},
		{"command substitution", "$(ls)", "$(ls)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "# for x in " + tt.source + "\necho $x\n# endfor"
			want := "for x in " + tt.want + "; do\necho $x\ndone"
			assertExpand(t, input, want)
		})
	}
}

func TestExpandPreservesIndent(t *testing.T) {
	input := "main() {\n    # for f in LIST\n    echo $f\n    # endfor\n}"
	want := "main() {\n    for f in ${LIST}; do\n    echo $f\n    done\n}"
	assertExpand(t, input, want)
}

func TestExpandDirectCall(t *testing.T) {
	input := "process() {\n    echo \"$1\"\n}\n\n# for f in *.log -> process"
	got := expandOrFail(t, input)
	want := "for f in *.log; do\nprocess \"$f\"\ndone"
	if !strings.Contains(got, want) {
		t.Errorf("Expand() = %q, want it to contain %q", got, want)
	}
	if !strings.Contains(got, "process() {") {
		t.Errorf("Expand() dropped the function definition:\n%s", got)
	}
}

func TestExpandBareCallRewrite(t *testing.T) {
	input := "handle() {\n    echo \"$1\"\n}\n\n# for f in *.txt\nhandle"
	got := expandOrFail(t, input)
	if !strings.Contains(got, "handle \"$f\"") {
		t.Errorf("bare call not rewritten to pass the iterator:\n%s", got)
	}
}

func TestExpandFunctionTarget(t *testing.T) {
	input := "# for f in FILES\ndeploy() {\n    echo \"deploying $1\"\n}"
	got := expandOrFail(t, input)

	if !strings.Contains(got, "deploy() {") {
		t.Errorf("function definition missing from output:\n%s", got)
	}
	loop := "for f in ${FILES}; do\n    deploy \"$f\"\ndone"
	if !strings.Contains(got, loop) {
		t.Errorf("Expand() = %q, want appended loop %q", got, loop)
	}
	if defIdx, loopIdx := strings.Index(got, "deploy() {"), strings.Index(got, "for f in"); defIdx > loopIdx {
		t.Errorf("loop must come after the function definition:\n%s", got)
	}
}

func TestExpandFunctionTargetFileLines(t *testing.T) {
	input := "# for line in $INPUT_FILE\nhandle() {\n    echo \"$1\"\n}"
	got := expandOrFail(t, input)
	if !strings.Contains(got, "while IFS= read -r line; do") {
		t.Errorf("file source should iterate lines:\n%s", got)
	}
	if !strings.Contains(got, "done < $INPUT_FILE") {
		t.Errorf("missing input redirection:\n%s", got)
	}
}

func TestExpandWithParams(t *testing.T) {
	input := "# for f in FILES | with --verbose\nsync() {\n    echo \"$@\"\n}"
	got := expandOrFail(t, input)
	if !strings.Contains(got, `sync "$f" "--verbose"`) {
		t.Errorf("with-clause params not passed through:\n%s", got)
	}
}

func TestExpandStrayEndfor(t *testing.T) {
	input := "echo start\n# endfor\necho end"
	assertExpand(t, input, input)
}

func TestExpandNestedWithoutEndfor(t *testing.T) {
	// Without any endfor the outer macro is single-line: it consumes the
	// next line verbatim, even when that line is itself a macro comment.
	input := "# for a in X\n# for b in Y\necho $a $b"
	want := "for a in ${X}; do\n# for b in Y\ndone\necho $a $b"
	assertExpand(t, input, want)
}

func TestExpandTrailingNewlineFidelity(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"with newline", "# for x in LIST\necho $x\n# endfor\n"},
		{"without newline", "# for x in LIST\necho $x\n# endfor"},
		{"plain with newline", "echo hi\n"},
		{"plain without newline", "echo hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandOrFail(t, tt.input)
			wantNL := strings.HasSuffix(tt.input, "\n")
			if gotNL := strings.HasSuffix(got, "\n"); gotNL != wantNL {
				t.Errorf("trailing newline = %v, want %v", gotNL, wantNL)
			}
		})
	}
}

func TestExpandIdempotence(t *testing.T) {
	inputs := []string{
		"# for item in LIST\necho $item\n# endfor\n",
		"# for a in X\n# for b in Y\necho $a $b\n# endfor\n# endfor",
		"#!/bin/bash\n# set strict\necho hi\n",
		"#!/bin/bash\n# trap cleanup\necho bye\n",
	}
	for _, input := range inputs {
		once := expandOrFail(t, input)
		twice := expandOrFail(t, once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("Expand() not idempotent for %q (-once +twice):\n%s", input, diff)
		}
	}
}

func TestExpandDeepNesting(t *testing.T) {
	const depth = 20
	var b strings.Builder
	for i := 0; i < depth; i++ {
		b.WriteString("# for v" + string(rune('a'+i)) + " in LIST\n")
	}
	b.WriteString("echo body\n")
	for i := 0; i < depth; i++ {
		b.WriteString("# endfor\n")
	}

	got := expandOrFail(t, b.String())
	if n := strings.Count(got, "; do"); n != depth {
		t.Errorf("got %d loop headers, want %d", n, depth)
	}
	if n := strings.Count(got, "done"); n != depth {
		t.Errorf("got %d done lines, want %d", n, depth)
	}
}

func TestExpandNoMacrosPassthrough(t *testing.T) {
	input := "#!/bin/bash\n# plain comment\necho \"hello $NAME\"\n"
	assertExpand(t, input, input)
}

func TestExpandInvalidIterationSyntax(t *testing.T) {
	// Detected as an iteration macro but fails the strict grammar.
	input := "# for 9bad in LIST x\necho hi\n# endfor"
	if _, err := Expand(input); err == nil {
		t.Fatal("Expand() expected error for malformed iteration macro")
	}
}
