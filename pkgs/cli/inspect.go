package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dotle-git/argorator/pkgs/annotations"
	"github.com/dotle-git/argorator/pkgs/errors"
	"github.com/dotle-git/argorator/pkgs/lexer"
)

// InterfaceReport is the machine-readable description of a script's CLI
// surface, produced by the inspect subcommand.
type InterfaceReport struct {
	Script      string              `json:"script" yaml:"script"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Shell       string              `json:"shell" yaml:"shell"`
	Variables   []VariableReport    `json:"variables" yaml:"variables"`
	Positionals []int               `json:"positionals,omitempty" yaml:"positionals,omitempty"`
	Varargs     bool                `json:"varargs" yaml:"varargs"`
	Groups      map[string][]string `json:"groups,omitempty" yaml:"groups,omitempty"`
	Exclusive   map[string][]string `json:"exclusive_groups,omitempty" yaml:"exclusive_groups,omitempty"`
}

// VariableReport describes one flag of the dynamic interface.
type VariableReport struct {
	Name     string   `json:"name" yaml:"name"`
	Flag     string   `json:"flag" yaml:"flag"`
	Alias    string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Type     string   `json:"type" yaml:"type"`
	Help     string   `json:"help,omitempty" yaml:"help,omitempty"`
	Required bool     `json:"required" yaml:"required"`
	Default  string   `json:"default,omitempty" yaml:"default,omitempty"`
	FromEnv  bool     `json:"from_env" yaml:"from_env"`
	Choices  []string `json:"choices,omitempty" yaml:"choices,omitempty"`
}

func newInspectCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect SCRIPT",
		Short: "Describe the CLI interface a script would get",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := prepareScript(args[0])
			if err != nil {
				return err
			}
			report := buildReport(ps, args[0])
			return writeReport(cmd.OutOrStdout(), report, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func buildReport(ps *preparedScript, scriptPath string) InterfaceReport {
	si := ps.iface
	report := InterfaceReport{
		Script:      scriptPath,
		Description: si.Description,
		Shell:       strings.Join(lexer.Interpreter(ps.expanded), " "),
		Positionals: si.Positionals.Indices,
		Varargs:     si.Positionals.Varargs,
		Groups:      annotations.Groups(si.Annotations),
		Exclusive:   annotations.ExclusiveGroups(si.Annotations),
	}

	appendVar := func(name string, fromEnv bool, envValue string) {
		ann := si.annotationFor(name)
		v := VariableReport{
			Name:    name,
			Flag:    "--" + strings.ToLower(name),
			Alias:   ann.Alias,
			Type:    ann.Type.ID().String(),
			Help:    ann.Help,
			FromEnv: fromEnv,
			Choices: ann.Choices,
		}
		switch {
		case fromEnv:
			v.Default = envValue
		case ann.HasDefault:
			v.Default = ann.Default
		default:
			v.Required = ann.Type.ID() != annotations.Bool
		}
		report.Variables = append(report.Variables, v)
	}

	for _, name := range si.Classification.Undefined {
		appendVar(name, false, "")
	}
	for _, name := range sortedKeys(si.Classification.Env) {
		appendVar(name, true, si.Classification.Env[name])
	}
	return report
}

func writeReport(w io.Writer, report InterfaceReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(report)
	case "text":
		writeTextReport(w, report)
		return nil
	default:
		return errors.New(errors.ErrInvalidArgument, "unknown format %q (use text, json or yaml)", format)
	}
}

func writeTextReport(w io.Writer, report InterfaceReport) {
	fmt.Fprintf(w, "Script: %s\n", report.Script)
	if report.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", report.Description)
	}
	fmt.Fprintf(w, "Shell: %s\n", report.Shell)

	if len(report.Variables) > 0 {
		fmt.Fprintln(w, "\nVariables:")
		for _, v := range report.Variables {
			line := fmt.Sprintf("  %s (%s)", v.Flag, v.Type)
			if v.Alias != "" {
				line += fmt.Sprintf(" [%s]", v.Alias)
			}
			if v.Required {
				line += " required"
			} else if v.Default != "" {
				source := "default"
				if v.FromEnv {
					source = "env"
				}
				line += fmt.Sprintf(" (%s: %s)", source, v.Default)
			}
			if v.Help != "" {
				line += " - " + v.Help
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(report.Positionals) > 0 || report.Varargs {
		fmt.Fprintln(w, "\nPositionals:")
		for _, idx := range report.Positionals {
			fmt.Fprintf(w, "  ARG%d\n", idx)
		}
		if report.Varargs {
			fmt.Fprintln(w, "  ARGS...")
		}
	}
}
