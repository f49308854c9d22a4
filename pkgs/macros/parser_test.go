package macros

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindMacroComments(t *testing.T) {
	script := `#!/bin/bash
# just a note
# for item in LIST
echo "$item"
# endfor
# set strict
# trap cleanup EXIT
`
	got := FindMacroComments(script)

	want := []struct {
		line    int
		content string
		typ     MacroType
	}{
		{2, "for item in LIST", Iteration},
		{5, "set strict", Safety},
		{6, "trap cleanup EXIT", Safety},
	}
	if len(got) != len(want) {
		t.Fatalf("found %d macro comments, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Line != w.line || got[i].Content != w.content || got[i].Type != w.typ {
			t.Errorf("comment[%d] = {%d %q %v}, want {%d %q %v}",
				i, got[i].Line, got[i].Content, got[i].Type, w.line, w.content, w.typ)
		}
	}
}

func TestParseIteration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    IterationMacro
	}{
		{
			name:    "bare variable source",
			content: "for item in LIST",
			want:    IterationMacro{Var: "item", Source: "LIST", Kind: KindArray},
		},
		{
			name:    "glob source",
			content: "for f in *.txt",
			want:    IterationMacro{Var: "f", Source: "*.txt", Kind: KindPattern},
		},
		{
			name:    "range source",
			content: "for i in {1..10}",
			want:    IterationMacro{Var: "i", Source: "{1..10}", Kind: KindRange},
		},
		{
			name:    "directory source",
			content: "for d in /var/log/",
			want:    IterationMacro{Var: "d", Source: "/var/log/", Kind: KindDirectory},
		},
		{
			name:    "file variable source",
			content: "for line in $INPUT_FILE",
			want:    IterationMacro{Var: "line", Source: "$INPUT_FILE", Kind: KindFileLines},
		},
		{
			name:    "glob slash is pattern not directory",
			content: "for d in */",
			want:    IterationMacro{Var: "d", Source: "*/", Kind: KindPattern},
		},
		{
			name:    "with params",
			content: "for f in FILES | with --force -v",
			want:    IterationMacro{Var: "f", Source: "FILES", Kind: KindArray, Params: []string{"--force", "-v"}},
		},
		{
			name:    "direct call suffix",
			content: "for f in *.log -> process",
			want:    IterationMacro{Var: "f", Source: "*.log", Kind: KindPattern, Func: "process"},
		},
		{
			name:    "explicit as file",
			content: "for line in $DATA as file",
			want:    IterationMacro{Var: "line", Source: "$DATA", SourceType: "file", Kind: KindFileLines},
		},
		{
			name:    "explicit as array",
			content: "for x in $ITEMS_FILE as array",
			want:    IterationMacro{Var: "x", Source: "$ITEMS_FILE", SourceType: "array", Kind: KindArray},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comment := MacroComment{Line: 0, Content: tt.content, Raw: "# " + tt.content, Type: Iteration}
			got, err := ParseIteration(comment, nil, nil)
			if err != nil {
				t.Fatalf("ParseIteration(%q) error: %v", tt.content, err)
			}
			tt.want.Comment = comment
			if diff := cmp.Diff(&tt.want, got); diff != "" {
				t.Errorf("ParseIteration(%q) mismatch (-want +got):\n%s", tt.content, diff)
			}
		})
	}
}

func TestParseIterationTypeHints(t *testing.T) {
	comment := MacroComment{Content: "for line in $DATA", Raw: "# for line in $DATA", Type: Iteration}
	got, err := ParseIteration(comment, nil, map[string]string{"DATA": "file"})
	if err != nil {
		t.Fatalf("ParseIteration() error: %v", err)
	}
	if got.Kind != KindFileLines {
		t.Errorf("Kind = %v, want %v (annotation type should refine inference)", got.Kind, KindFileLines)
	}
}

func TestParseIterationMalformed(t *testing.T) {
	comment := MacroComment{Content: "for 9x in LIST extra junk", Raw: "# for 9x in LIST extra junk", Type: Iteration}
	if _, err := ParseIteration(comment, nil, nil); err == nil {
		t.Fatal("ParseIteration() expected error for malformed content")
	}
}

func TestParseSafetyDefaults(t *testing.T) {
	comment := MacroComment{Content: "trap cleanup", Raw: "# trap cleanup", Type: Safety}
	got, err := ParseSafety(comment)
	if err != nil {
		t.Fatalf("ParseSafety() error: %v", err)
	}
	if diff := cmp.Diff(DefaultTrapSignals, got.Signals); diff != "" {
		t.Errorf("default signals mismatch (-want +got):\n%s", diff)
	}
}

func TestFindTarget(t *testing.T) {
	lines := []string{
		"# trap cleanup",
		"cleanup() {",
		"    rm -rf tmp",
		"}",
		"# trap cleanup",
		"echo single",
	}

	fn, err := FindTarget(lines, 0)
	if err != nil {
		t.Fatalf("FindTarget() error: %v", err)
	}
	if fn.Kind != TargetFunction || fn.FunctionName != "cleanup" || fn.StartLine != 1 || fn.EndLine != 3 {
		t.Errorf("function target = %+v", fn)
	}

	single, err := FindTarget(lines, 4)
	if err != nil {
		t.Fatalf("FindTarget() error: %v", err)
	}
	if single.Kind != TargetLine || single.Content != "echo single" {
		t.Errorf("line target = %+v", single)
	}

	last, err := FindTarget(lines, 5)
	if err != nil {
		t.Fatalf("FindTarget() error: %v", err)
	}
	if last != nil {
		t.Errorf("target past end = %+v, want nil", last)
	}
}

func TestIterationVars(t *testing.T) {
	script := "# for item in $LIST\necho $item\n# endfor\n# for f in *.txt\necho $f\n"
	if diff := cmp.Diff([]string{"item", "f"}, IterationVars(script)); diff != "" {
		t.Errorf("IterationVars() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"LIST"}, IterationSourceVars(script)); diff != "" {
		t.Errorf("IterationSourceVars() mismatch (-want +got):\n%s", diff)
	}
}
