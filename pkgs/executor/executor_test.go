package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/dotle-git/argorator/pkgs/errors"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	requireShell(t)

	var stdout bytes.Buffer
	code, err := Run(context.Background(), "echo hello\nexit 3\n", Options{
		Shell:  []string{"/bin/sh"},
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if got := stdout.String(); got != "hello\n" {
		t.Errorf("stdout = %q, want %q", got, "hello\n")
	}
}

func TestRunPassesPositionals(t *testing.T) {
	requireShell(t)

	var stdout bytes.Buffer
	code, err := Run(context.Background(), `echo "$1:$2:$@"`+"\n", Options{
		Shell:       []string{"/bin/sh"},
		Positionals: []string{"a", "b"},
		Stdout:      &stdout,
		Stderr:      &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d", code)
	}
	if got := stdout.String(); got != "a:b:a b\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunMissingInterpreter(t *testing.T) {
	_, err := Run(context.Background(), "echo hi\n", Options{
		Shell:  []string{"/nonexistent/shell"},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	if err == nil {
		t.Fatal("Run() expected error for missing interpreter")
	}
	if !errors.IsType(err, errors.ErrExecution) {
		t.Errorf("error type = %v, want %s", err, errors.ErrExecution)
	}
}

func TestReadScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.sh")
	content := "#!/bin/bash\necho hi\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ReadScript(path)
	if err != nil {
		t.Fatalf("ReadScript() error: %v", err)
	}
	if got != content {
		t.Errorf("ReadScript() = %q, want %q", got, content)
	}
}

func TestReadScriptMissing(t *testing.T) {
	_, err := ReadScript("/no/such/script.sh")
	if err == nil {
		t.Fatal("ReadScript() expected error")
	}
	if !errors.IsType(err, errors.ErrFileNotFound) {
		t.Errorf("error type = %v, want %s", err, errors.ErrFileNotFound)
	}
}

func TestReadScriptDirectory(t *testing.T) {
	if _, err := ReadScript(t.TempDir()); err == nil {
		t.Fatal("ReadScript() should reject directories")
	}
}
