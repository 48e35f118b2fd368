package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/benjaminschreck/go-pattern/pkg/pattern"
	"github.com/benjaminschreck/go-pattern/pkg/pattern/data"
	"github.com/benjaminschreck/go-pattern/pkg/pattern/scan"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pattern <command> [arguments]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  render [-config file] [-o out] [-v n] <template> <data>   Render a template with data")
	fmt.Fprintln(w, "  compile [-vars a,b] <template>                           Show the compiled instructions")
	fmt.Fprintln(w, "  convert <data> <out.cbor>                                Re-encode a data file as CBOR")
	fmt.Fprintln(w, "  version                                                  Show version information")
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "pattern version %s\n", version)
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "render":
		err = renderCommand(args[1:], stdout, stderr)
	case "compile":
		err = compileCommand(args[1:], stdout, stderr)
	case "convert":
		err = convertCommand(args[1:], stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		usage(stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "pattern: %v\n", err)
		return 1
	}
	return 0
}

// setup builds an engine from the environment and an optional TOML file.
func setup(configPath string, verbosity int) (*pattern.Engine, *pattern.ConfigFile, error) {
	config := pattern.GetGlobalConfig()

	var cf *pattern.ConfigFile
	if configPath != "" {
		var err error
		cf, err = pattern.LoadConfigFile(configPath)
		if err != nil {
			return nil, nil, err
		}
		config, err = cf.Config(config)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", configPath, err)
		}
	}

	engine := pattern.NewWithOptions(
		pattern.WithConfig(config),
		pattern.WithLogger(newLogger(verbosity, config.LogLevel)),
	)
	return engine, cf, nil
}

// libraryRoot compiles the templates named in the config file and returns
// them keyed by name, so patterns can call them statically.
func libraryRoot(engine *pattern.Engine, cf *pattern.ConfigFile) (map[string]interface{}, error) {
	root := make(map[string]interface{})
	if cf == nil {
		return root, nil
	}

	names := make([]string, 0, len(cf.Templates))
	for name := range cf.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p, _ := cf.TemplatePath(name)
		tmpl, err := engine.CompileFile(p, nil, cf.Templates[name].Vars)
		if err != nil {
			return nil, fmt.Errorf("library template %s: %w", name, err)
		}
		root[name] = tmpl
	}
	return root, nil
}

func renderCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML configuration file")
	output := fs.String("o", "", "Output file (default stdout)")
	verbosity := fs.Int("v", -1, "Log verbosity: 0 warnings, 1 info, 2 debug (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: pattern render [flags] <template> <data>")
	}

	engine, cf, err := setup(*configPath, *verbosity)
	if err != nil {
		return err
	}
	defer engine.Close()

	doc, err := data.Load(fs.Arg(1))
	if err != nil {
		return err
	}
	top, err := data.Top(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(1), err)
	}

	root, err := libraryRoot(engine, cf)
	if err != nil {
		return err
	}

	// top-level keys that are identifiers become the template's variables
	var vars []string
	for _, key := range top.Keys() {
		if scan.IsIdentifier(key) {
			vars = append(vars, key)
		} else {
			fmt.Fprintf(stderr, "pattern: skipping data key %q: not an identifier\n", key)
		}
	}

	tmpl, err := engine.CompileFile(fs.Arg(0), root, strings.Join(vars, ", "))
	if err != nil {
		return err
	}

	frame := tmpl.NewFrame()
	for _, name := range vars {
		v, _ := top.Get(name)
		if err := frame.Set(name, v); err != nil {
			return err
		}
	}

	w := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return tmpl.Execute(frame, w)
}

func compileCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	vars := fs.String("vars", "", "Comma-separated variable names")
	configPath := fs.String("config", "", "TOML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: pattern compile [-vars a,b] <template>")
	}

	engine, cf, err := setup(*configPath, -1)
	if err != nil {
		return err
	}
	defer engine.Close()

	root, err := libraryRoot(engine, cf)
	if err != nil {
		return err
	}
	tmpl, err := engine.CompileFile(fs.Arg(0), root, *vars)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, tmpl.Dump())
	return nil
}

func convertCommand(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: pattern convert <data> <out.cbor>")
	}

	doc, err := data.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	f, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	if err := data.WriteCBOR(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
