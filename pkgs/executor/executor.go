// Package executor runs compiled scripts through the interpreter named by
// the script's shebang, feeding the text over stdin so nothing touches disk.
package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dotle-git/argorator/pkgs/errors"
	"github.com/dotle-git/argorator/pkgs/lexer"
)

// Options controls a single script run.
type Options struct {
	Shell       []string // interpreter argv, e.g. ["/bin/bash"]
	Positionals []string // values for $1..$N and $@
	Stdout      io.Writer
	Stderr      io.Writer
}

// Run executes scriptText with the configured shell, passing positional
// arguments through "-s --" so the script reads from stdin with $1..$N
// populated. Returns the script's exit code. A non-zero exit is not an
// error; failures to start the interpreter are.
func Run(ctx context.Context, scriptText string, opts Options) (int, error) {
	shell := opts.Shell
	if len(shell) == 0 {
		shell = lexer.Interpreter(scriptText)
	}

	args := append(append([]string(nil), shell[1:]...), "-s", "--")
	args = append(args, opts.Positionals...)

	cmd := exec.CommandContext(ctx, shell[0], args...)
	cmd.Stdin = strings.NewReader(scriptText)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrap(errors.ErrExecution, fmt.Sprintf("running %s", shell[0]), err)
}

// ReadScript validates the path and returns the script's content. "-" reads
// from stdin.
func ReadScript(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Wrap(errors.ErrScriptRead, "reading script from stdin", err)
		}
		return string(data), nil
	}

	resolved, err := filepath.Abs(expandUser(path))
	if err != nil {
		resolved = path
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return "", errors.New(errors.ErrFileNotFound, "script not found: %s", path)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", errors.Wrap(errors.ErrScriptRead, fmt.Sprintf("reading %s", path), err)
	}
	return string(data), nil
}

func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
