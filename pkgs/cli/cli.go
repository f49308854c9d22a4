// Package cli exposes shell scripts as command line tools: it analyzes a
// script, turns its undefined and environment-backed variables into flags,
// expands comment macros, and runs (or prints, or exports) the result.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dotle-git/argorator/pkgs/annotations"
	"github.com/dotle-git/argorator/pkgs/compiler"
	"github.com/dotle-git/argorator/pkgs/errors"
	"github.com/dotle-git/argorator/pkgs/executor"
	"github.com/dotle-git/argorator/pkgs/lexer"
	"github.com/dotle-git/argorator/pkgs/macros"
)

// Exit codes.
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitScriptError      = 3
)

// noColorFlag disables ANSI colors for the whole invocation. Set by the
// root --no-color flag or by the same flag on a script's dynamic flag set,
// whichever parses the arguments.
var noColorFlag bool

var subcommands = map[string]bool{
	"run": true, "compile": true, "export": true, "inspect": true, "watch": true,
	"help": true, "completion": true,
}

// Execute parses argv and dispatches. A first argument that is not a known
// subcommand is treated as a script path for an implicit run. Returns the
// process exit code.
func Execute(argv []string) int {
	if len(argv) > 0 && !subcommands[argv[0]] && !strings.HasPrefix(argv[0], "-") {
		argv = append([]string{"run"}, argv...)
	}

	root := newRootCommand()
	root.SetArgs(argv)
	if err := root.Execute(); err != nil {
		var exit exitError
		if stderrors.As(err, &exit) {
			return exit.code
		}
		printError(err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// exitError carries a script's own exit status up through cobra.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "argorator",
		Short:         "Run shell scripts with their variables exposed as CLI flags",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	root.AddCommand(
		newScriptCommand("run", "Execute a script with injected variable values", runScript),
		newScriptCommand("compile", "Print the compiled script without executing it", compileScript),
		newScriptCommand("export", "Print export lines for the resolved variables", exportScript),
		newInspectCommand(),
		newWatchCommand(),
	)
	return root
}

// newScriptCommand builds a subcommand that takes a script path plus
// script-specific arguments. Flag parsing is disabled: flags belong to the
// script's dynamic interface, not to cobra.
func newScriptCommand(name, short string, handler func(cmd *cobra.Command, scriptPath string, rest []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                name + " SCRIPT [script flags and args]",
		Short:              short,
		DisableFlagParsing: true,
		Args:               cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-h" || args[0] == "--help" {
				return cmd.Help()
			}
			return handler(cmd, args[0], args[1:])
		},
	}
}

// preparedScript is the shared front half of every subcommand: the
// macro-expanded text and the dynamic interface built from it.
type preparedScript struct {
	expanded string
	iface    *ScriptInterface
}

func prepareScript(path string) (*preparedScript, error) {
	raw, err := executor.ReadScript(path)
	if err != nil {
		return nil, err
	}

	expanded, err := macros.ExpandWithTypes(raw, typeHints(raw))
	if err != nil {
		return nil, err
	}

	iface, err := BuildInterface(expanded)
	if err != nil {
		return nil, err
	}
	return &preparedScript{expanded: expanded, iface: iface}, nil
}

// typeHints extracts annotation types for macro kind inference. Annotation
// errors are deferred to BuildInterface so they surface with proper context.
func typeHints(scriptText string) map[string]string {
	anns, err := annotations.Parse(scriptText)
	if err != nil {
		return nil
	}
	hints := make(map[string]string, len(anns))
	for name, ann := range anns {
		hints[name] = ann.Type.ID().String()
	}
	return hints
}

func parseScriptArgs(ps *preparedScript, scriptPath string, rest []string) (*ParsedArgs, error) {
	parsed, err := ps.iface.Parse(rest)
	if ps.iface.noColor {
		noColorFlag = true
	}
	if err == pflag.ErrHelp {
		printScriptUsage(ps, scriptPath)
		return nil, nil
	}
	return parsed, err
}

func printScriptUsage(ps *preparedScript, scriptPath string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: argorator %s", scriptPath)
	if len(ps.iface.stringVal)+len(ps.iface.boolVal) > 0 {
		b.WriteString(" [flags]")
	}
	for _, idx := range ps.iface.Positionals.Indices {
		fmt.Fprintf(&b, " ARG%d", idx)
	}
	if ps.iface.Positionals.Varargs {
		b.WriteString(" [ARGS...]")
	}
	b.WriteString("\n")
	if ps.iface.Description != "" {
		b.WriteString("\n" + ps.iface.Description + "\n")
	}
	b.WriteString("\n")
	b.WriteString(ps.iface.FlagUsage())
	fmt.Fprint(os.Stdout, b.String())
}

func runScript(cmd *cobra.Command, scriptPath string, rest []string) error {
	ps, err := prepareScript(scriptPath)
	if err != nil {
		return err
	}
	parsed, err := parseScriptArgs(ps, scriptPath, rest)
	if err != nil || parsed == nil {
		return err
	}

	compiled := compiler.InjectAssignments(ps.expanded, parsed.Assignments)
	if parsed.EchoMode {
		compiled = compiler.EchoMode(compiled)
	}

	code, err := executor.Run(context.Background(), compiled, executor.Options{
		Shell:       lexer.Interpreter(compiled),
		Positionals: parsed.Positionals,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return exitError{code: code}
	}
	return nil
}

func compileScript(cmd *cobra.Command, scriptPath string, rest []string) error {
	ps, err := prepareScript(scriptPath)
	if err != nil {
		return err
	}
	parsed, err := parseScriptArgs(ps, scriptPath, rest)
	if err != nil || parsed == nil {
		return err
	}

	compiled := compiler.InjectAssignments(ps.expanded, parsed.Assignments)
	if parsed.EchoMode {
		compiled = compiler.EchoMode(compiled)
	}
	fmt.Fprint(cmd.OutOrStdout(), compiled)
	return nil
}

func exportScript(cmd *cobra.Command, scriptPath string, rest []string) error {
	ps, err := prepareScript(scriptPath)
	if err != nil {
		return err
	}
	parsed, err := parseScriptArgs(ps, scriptPath, rest)
	if err != nil || parsed == nil {
		return err
	}

	lines := compiler.ExportLines(parsed.Assignments)
	if lines != "" {
		fmt.Fprintln(cmd.OutOrStdout(), lines)
	}
	return nil
}

func printError(err error) {
	useColor := ShouldUseColor(noColorFlag)
	prefix := Colorize("Error:", ColorRed, useColor)
	fmt.Fprintf(os.Stderr, "%s %v\n", prefix, err)
}

func exitCodeFor(err error) int {
	switch {
	case errors.IsType(err, errors.ErrFileNotFound), errors.IsType(err, errors.ErrScriptRead):
		return ExitIOError
	case errors.IsType(err, errors.ErrMissingArgument), errors.IsType(err, errors.ErrInvalidArgument):
		return ExitInvalidArguments
	case errors.IsType(err, errors.ErrExecution):
		return ExitScriptError
	}
	var scriptErr *errors.ScriptError
	if stderrors.As(err, &scriptErr) {
		return ExitScriptError
	}
	return ExitInvalidArguments
}
