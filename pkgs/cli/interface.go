package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dotle-git/argorator/pkgs/analyzer"
	"github.com/dotle-git/argorator/pkgs/annotations"
	"github.com/dotle-git/argorator/pkgs/errors"
)

// ScriptInterface is the CLI surface derived from one script: a flag per
// undefined or environment-backed variable and a positional slot per $N
// reference. Flags are named after the lowercased variable.
type ScriptInterface struct {
	ScriptText     string
	Description    string
	Classification analyzer.Classification
	Positionals    analyzer.Positionals
	Annotations    map[string]*annotations.Annotation

	flags     *pflag.FlagSet
	stringVal map[string]*string
	boolVal   map[string]*bool
	required  map[string]bool
	jsonInput string
	echoMode  bool
	noColor   bool
}

// ParsedArgs is the outcome of parsing user arguments against a
// ScriptInterface.
type ParsedArgs struct {
	Assignments map[string]string // variable name -> resolved value
	Positionals []string          // values for $1..$N followed by varargs
	EchoMode    bool
}

// BuildInterface analyzes the (macro-expanded) script and constructs its
// dynamic flag set.
func BuildInterface(scriptText string) (*ScriptInterface, error) {
	anns, err := annotations.Parse(scriptText)
	if err != nil {
		return nil, err
	}

	si := &ScriptInterface{
		ScriptText:     scriptText,
		Classification: analyzer.Classify(scriptText),
		Positionals:    analyzer.AnalyzePositionals(scriptText),
		Annotations:    anns,
		flags:          pflag.NewFlagSet("script", pflag.ContinueOnError),
		stringVal:      make(map[string]*string),
		boolVal:        make(map[string]*bool),
		required:       make(map[string]bool),
	}
	si.Description, _ = annotations.ParseDescription(scriptText)
	si.flags.SetInterspersed(false)
	si.flags.SortFlags = false

	for _, name := range si.Classification.Undefined {
		si.addVariableFlag(name, "", false)
	}
	for _, name := range sortedKeys(si.Classification.Env) {
		si.addVariableFlag(name, si.Classification.Env[name], true)
	}

	si.flags.StringVar(&si.jsonInput, "json-input", "", "Read variable values from a JSON file ('-' for stdin)")
	si.flags.BoolVar(&si.echoMode, "echo", false, "Print each command instead of executing it")
	si.flags.BoolVar(&si.noColor, "no-color", false, "Disable colored output")

	return si, nil
}

func (si *ScriptInterface) annotationFor(name string) *annotations.Annotation {
	if ann, ok := si.Annotations[name]; ok {
		return ann
	}
	return &annotations.Annotation{Name: name, Type: annotations.DefaultType()}
}

func (si *ScriptInterface) addVariableFlag(name, envDefault string, fromEnv bool) {
	ann := si.annotationFor(name)
	flagName := strings.ToLower(name)
	shorthand := strings.TrimPrefix(ann.Alias, "-")

	usage := ann.Help
	switch {
	case fromEnv:
		if usage != "" {
			usage += " "
		}
		usage += fmt.Sprintf("(default from env: %s)", envDefault)
	case ann.HasDefault:
		if usage != "" {
			usage += " "
		}
		usage += fmt.Sprintf("(default: %s)", ann.Default)
	}
	if len(ann.Choices) > 0 {
		usage += fmt.Sprintf(" [choices: %s]", strings.Join(ann.Choices, ", "))
	}

	if ann.Type.ID() == annotations.Bool {
		def := false
		switch {
		case fromEnv:
			v, _ := annotations.NormalizeBool(envDefault)
			def = v == "true"
		case ann.HasDefault:
			v, _ := annotations.NormalizeBool(ann.Default)
			def = v == "true"
		}
		si.boolVal[name] = si.flags.BoolP(flagName, shorthand, def, usage)
		return
	}

	def := ""
	required := false
	switch {
	case fromEnv:
		def = envDefault
	case ann.HasDefault:
		def = ann.Default
	default:
		required = true
	}
	si.stringVal[name] = si.flags.StringP(flagName, shorthand, def, usage)
	si.required[name] = required
}

// FlagUsage renders the dynamic flag help text, grouped when the script
// declares argument groups.
func (si *ScriptInterface) FlagUsage() string {
	groups := annotations.Groups(si.Annotations)
	exclusive := annotations.ExclusiveGroups(si.Annotations)
	if len(groups) == 0 && len(exclusive) == 0 {
		return si.flags.FlagUsages()
	}

	grouped := make(map[string]bool)
	var b strings.Builder
	writeGroup := func(title string, members []string) {
		b.WriteString(title + ":\n")
		for _, name := range members {
			if f := si.flags.Lookup(strings.ToLower(name)); f != nil {
				b.WriteString(flagUsageLine(f))
				grouped[name] = true
			}
		}
		b.WriteString("\n")
	}
	for _, g := range sortedGroupNames(groups) {
		writeGroup(g, groups[g])
	}
	for _, g := range sortedGroupNames(exclusive) {
		writeGroup(g+" (mutually exclusive)", exclusive[g])
	}

	var rest strings.Builder
	si.flags.VisitAll(func(f *pflag.Flag) {
		if !grouped[strings.ToUpper(f.Name)] {
			rest.WriteString(flagUsageLine(f))
		}
	})
	if rest.Len() > 0 {
		b.WriteString("Flags:\n")
		b.WriteString(rest.String())
	}
	return b.String()
}

func flagUsageLine(f *pflag.Flag) string {
	name := "--" + f.Name
	if f.Shorthand != "" {
		name = "-" + f.Shorthand + ", " + name
	}
	return fmt.Sprintf("  %-24s %s\n", name, f.Usage)
}

// Parse resolves user arguments into variable assignments and positional
// values. Value precedence per variable: explicit flag, then JSON input,
// then environment or annotation default.
func (si *ScriptInterface) Parse(args []string) (*ParsedArgs, error) {
	if err := si.flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, err
		}
		return nil, errors.New(errors.ErrInvalidArgument, "%v", err)
	}

	jsonValues, err := si.loadJSONInput()
	if err != nil {
		return nil, err
	}

	assignments := make(map[string]string)

	for name, ptr := range si.stringVal {
		value := *ptr
		provided := si.flags.Changed(strings.ToLower(name))
		if !provided {
			if jv, ok := jsonValues[name]; ok {
				value = jv
				provided = true
			}
		}
		if si.required[name] && !provided && value == "" {
			return nil, errors.New(errors.ErrMissingArgument, "missing required --%s", strings.ToLower(name))
		}
		ann := si.annotationFor(name)
		if provided || value != "" {
			if err := ann.Type.Validate(value, ann); err != nil {
				return nil, errors.New(errors.ErrInvalidArgument, "--%s: %v", strings.ToLower(name), err)
			}
		}
		assignments[name] = value
	}

	for name, ptr := range si.boolVal {
		value := strconv.FormatBool(*ptr)
		if !si.flags.Changed(strings.ToLower(name)) {
			if jv, ok := jsonValues[name]; ok {
				normalized, ok := annotations.NormalizeBool(jv)
				if !ok {
					return nil, errors.New(errors.ErrInvalidArgument,
						"--%s: %q is not a valid boolean", strings.ToLower(name), jv)
				}
				value = normalized
			}
		}
		assignments[name] = value
	}

	if err := si.checkExclusiveGroups(); err != nil {
		return nil, err
	}

	positionals, err := si.collectPositionals(si.flags.Args())
	if err != nil {
		return nil, err
	}

	return &ParsedArgs{
		Assignments: assignments,
		Positionals: positionals,
		EchoMode:    si.echoMode,
	}, nil
}

// checkExclusiveGroups rejects invocations that set more than one flag from
// a mutually exclusive group.
func (si *ScriptInterface) checkExclusiveGroups() error {
	for group, members := range annotations.ExclusiveGroups(si.Annotations) {
		var set []string
		for _, name := range members {
			if si.flags.Changed(strings.ToLower(name)) {
				set = append(set, "--"+strings.ToLower(name))
			}
		}
		if len(set) > 1 {
			return errors.New(errors.ErrInvalidArgument,
				"flags %s are mutually exclusive (group %s)", strings.Join(set, " and "), group)
		}
	}
	return nil
}

func (si *ScriptInterface) collectPositionals(rest []string) ([]string, error) {
	indices := si.Positionals.Indices
	if len(rest) < len(indices) {
		missing := indices[len(rest)]
		return nil, errors.New(errors.ErrMissingArgument, "missing positional argument $%d", missing)
	}
	if len(rest) > len(indices) && !si.Positionals.Varargs {
		return nil, errors.New(errors.ErrInvalidArgument,
			"unexpected extra arguments: %s", strings.Join(rest[len(indices):], " "))
	}
	return rest, nil
}

func (si *ScriptInterface) loadJSONInput() (map[string]string, error) {
	if si.jsonInput == "" {
		return nil, nil
	}
	var data []byte
	var err error
	if si.jsonInput == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(si.jsonInput)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidArgument, "reading JSON input", err)
	}

	raw := make(map[string]any)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidArgument, "parsing JSON input", err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case string:
			values[strings.ToUpper(k)] = tv
		case bool:
			values[strings.ToUpper(k)] = strconv.FormatBool(tv)
		case float64:
			values[strings.ToUpper(k)] = strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			return nil, errors.New(errors.ErrInvalidArgument,
				"JSON input value for %q must be a string, number or boolean", k)
		}
	}
	return values, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedGroupNames(m map[string][]string) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
