package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotle-git/argorator/pkgs/compiler"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCompileInjectsAssignments(t *testing.T) {
	path := writeScript(t, "#!/bin/bash\necho \"Hello $NAME\"\n")

	out, err := runCommand(t, "compile", path, "--name", "world")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	want := "#!/bin/bash\n" + compiler.InjectionMarker + "\nNAME=world\necho \"Hello $NAME\"\n"
	if out != want {
		t.Errorf("compile output = %q, want %q", out, want)
	}
}

func TestNoColorFlag(t *testing.T) {
	noColorFlag = false
	t.Cleanup(func() { noColorFlag = false })

	path := writeScript(t, "#!/bin/bash\necho \"Hello $NAME\"\n")
	out, err := runCommand(t, "compile", path, "--name", "world", "--no-color")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if !strings.Contains(out, "NAME=world") {
		t.Errorf("compile output missing assignment:\n%s", out)
	}
	if !noColorFlag {
		t.Error("--no-color on a script flag set should disable colors")
	}
	if ShouldUseColor(noColorFlag) {
		t.Error("ShouldUseColor() must be false once --no-color is set")
	}
}

func TestCompileExpandsMacros(t *testing.T) {
	path := writeScript(t, "#!/bin/bash\n# for f in LIST\necho $f\n# endfor\n")

	out, err := runCommand(t, "compile", path, "--list", "a b c")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if !strings.Contains(out, "for f in ${LIST}; do") {
		t.Errorf("macros not expanded:\n%s", out)
	}
	if !strings.Contains(out, "LIST='a b c'") {
		t.Errorf("assignment not injected:\n%s", out)
	}
}

func TestCompileEchoMode(t *testing.T) {
	path := writeScript(t, "#!/bin/bash\necho \"Hello $NAME\"\n")

	out, err := runCommand(t, "compile", path, "--name", "w", "--echo")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if !strings.Contains(out, `echo "echo \"Hello $NAME\""`) {
		t.Errorf("echo mode not applied:\n%s", out)
	}
}

func TestExportPrintsAssignments(t *testing.T) {
	path := writeScript(t, "echo \"$NAME\"\n")

	out, err := runCommand(t, "export", path, "--name", "two words")
	if err != nil {
		t.Fatalf("export error: %v", err)
	}
	if !strings.Contains(out, "export NAME='two words'") {
		t.Errorf("export output = %q", out)
	}
}

func TestInspectTextReport(t *testing.T) {
	path := writeScript(t, `#!/bin/bash
# Description: Greets someone
# NAME (str): Who to greet
echo "Hello $NAME $1"
`)

	out, err := runCommand(t, "inspect", path)
	if err != nil {
		t.Fatalf("inspect error: %v", err)
	}
	for _, want := range []string{"Greets someone", "--name", "required", "ARG1", "/bin/bash"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectJSONReport(t *testing.T) {
	path := writeScript(t, "echo \"$TARGET\"\n")

	out, err := runCommand(t, "inspect", path, "--format", "json")
	if err != nil {
		t.Fatalf("inspect error: %v", err)
	}
	if !strings.Contains(out, `"name": "TARGET"`) {
		t.Errorf("json report missing variable:\n%s", out)
	}
}

func TestMissingScript(t *testing.T) {
	_, err := runCommand(t, "compile", "/no/such/script.sh")
	if err == nil {
		t.Fatal("expected file-not-found error")
	}
}

func TestExecuteImplicitRun(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := writeScript(t, "#!/bin/sh\nexit 0\n")

	if code := Execute([]string{path}); code != ExitSuccess {
		t.Errorf("implicit run exit code = %d, want %d", code, ExitSuccess)
	}
}

func TestExecuteExitCodePropagation(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := writeScript(t, "#!/bin/sh\nexit 7\n")

	if code := Execute([]string{"run", path}); code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
}
