package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"", "''"},
		{"/usr/local/bin", "/usr/local/bin"},
		{"hello world", "'hello world'"},
		{"it's", `'it'"'"'s'`},
		{"$HOME", "'$HOME'"},
		{"a;rm -rf /", "'a;rm -rf /'"},
		{"v1.2.3", "v1.2.3"},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInjectAssignmentsAfterShebang(t *testing.T) {
	script := "#!/bin/bash\necho \"Hello $NAME\"\n"
	got := InjectAssignments(script, map[string]string{"NAME": "world"})
	want := "#!/bin/bash\n" + InjectionMarker + "\nNAME=world\necho \"Hello $NAME\"\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("InjectAssignments() mismatch (-want +got):\n%s", diff)
	}
}

func TestInjectAssignmentsNoShebang(t *testing.T) {
	script := "echo \"Hello $NAME\"\n"
	got := InjectAssignments(script, map[string]string{"NAME": "two words"})
	if !strings.HasPrefix(got, InjectionMarker+"\nNAME='two words'\n") {
		t.Errorf("injection block not at top:\n%s", got)
	}
	if !strings.HasSuffix(got, "echo \"Hello $NAME\"\n") {
		t.Errorf("script body altered:\n%s", got)
	}
}

func TestInjectAssignmentsSorted(t *testing.T) {
	got := InjectAssignments("echo hi\n", map[string]string{"ZETA": "1", "ALPHA": "2", "MID": "3"})
	alpha := strings.Index(got, "ALPHA=")
	mid := strings.Index(got, "MID=")
	zeta := strings.Index(got, "ZETA=")
	if !(alpha < mid && mid < zeta) {
		t.Errorf("assignments not sorted:\n%s", got)
	}
}

func TestInjectAssignmentsEmpty(t *testing.T) {
	script := "#!/bin/bash\necho hi\n"
	if got := InjectAssignments(script, nil); got != script {
		t.Errorf("empty assignments should be a no-op, got:\n%s", got)
	}
}

func TestExportLines(t *testing.T) {
	got := ExportLines(map[string]string{"NAME": "world", "DIR": "/tmp/my dir"})
	want := "export DIR='/tmp/my dir'\nexport NAME=world"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExportLines() mismatch (-want +got):\n%s", diff)
	}
}

func TestEchoMode(t *testing.T) {
	script := strings.Join([]string{
		"#!/bin/bash",
		InjectionMarker,
		"NAME=world",
		"",
		"# say hello",
		`echo "Hello $NAME"`,
		"",
	}, "\n")
	got := EchoMode(script)
	want := strings.Join([]string{
		"#!/bin/bash",
		InjectionMarker,
		"NAME=world",
		"",
		"# say hello",
		`echo "echo \"Hello $NAME\""`,
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EchoMode() mismatch (-want +got):\n%s", diff)
	}
}

func TestEchoModePreservesTrailingNewline(t *testing.T) {
	for _, script := range []string{"echo hi\n", "echo hi"} {
		got := EchoMode(script)
		if strings.HasSuffix(got, "\n") != strings.HasSuffix(script, "\n") {
			t.Errorf("EchoMode(%q) trailing newline mismatch: %q", script, got)
		}
	}
}
