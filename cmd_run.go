package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tarn/compiler"
	"tarn/config"
	"tarn/interpreter"
	"tarn/object"
	"tarn/parser"
	"tarn/timing"
	"tarn/vm"
)

// runCmd executes a source file on either back end.
type runCmd struct {
	engine     string
	configPath string
	timeReport bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute a Tarn source file" }
func (*runCmd) Usage() string {
	return `run [-engine eval|vm] [-config file] [-time] <file>:
  Execute Tarn code from a source file.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.engine, "engine", "", "execution engine: eval or vm (default from config)")
	f.StringVar(&r.configPath, "config", "", "path to a TOML config file")
	f.BoolVar(&r.timeReport, "time", false, "print timing statistics after execution")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "run: no source file provided")
		return subcommands.ExitUsageError
	}

	cfg, err := config.Load(r.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	engine := cfg.Run.Engine
	if r.engine != "" {
		engine = r.engine
	}
	if engine != config.EngineEval && engine != config.EngineVM {
		fmt.Fprintf(os.Stderr, "run: unknown engine %q\n", engine)
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	timers := timing.NewManager("run")
	status := executeSource(string(data), engine, cfg, timers)
	if r.timeReport {
		fmt.Fprint(os.Stderr, timers.ReportAll())
	}
	return status
}

func executeSource(source, engine string, cfg *config.Config, timers *timing.Manager) subcommands.ExitStatus {
	parseTimer := timers.Scoped("Parse")
	program, p := parser.Parse(source)
	parseTimer.Stop()

	if !p.Ok() {
		for _, msg := range p.Errors() {
			fmt.Fprintln(os.Stderr, msg)
		}
		return subcommands.ExitFailure
	}

	if engine == config.EngineEval {
		evalTimer := timers.Scoped("Evaluate")
		result := interpreter.Make().Evaluate(program, object.NewEnvironment())
		evalTimer.Stop()

		if object.IsError(result) {
			fmt.Fprintln(os.Stderr, result.Inspect())
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	compileTimer := timers.Scoped("Compile")
	bytecode, err := compiler.New().Compile(program)
	compileTimer.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	machine := vm.NewWithOptions(bytecode, vm.Options{
		StackSize:   cfg.VM.StackSize,
		GlobalsSize: cfg.VM.GlobalsSize,
		MaxFrames:   cfg.VM.MaxFrames,
	})

	runTimer := timers.Scoped("Run")
	err = machine.Run()
	runTimer.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if result := machine.LastPopped(); object.IsError(result) {
		fmt.Fprintln(os.Stderr, result.Inspect())
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
