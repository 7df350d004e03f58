package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tarn/config"
	"tarn/repl"
)

// replCmd starts the interactive session.
type replCmd struct {
	engine     string
	configPath string
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive session" }
func (*replCmd) Usage() string {
	return `repl [-engine eval|vm] [-config file]:
  Start an interactive Tarn session.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.engine, "engine", "", "execution engine: eval or vm (default from config)")
	f.StringVar(&r.configPath, "config", "", "path to a TOML config file")
}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
		fmt.Fprintf(os.Stderr, "repl: unknown engine %q\n", engine)
		return subcommands.ExitUsageError
	}

	session := repl.New(cfg, engine, os.Stdout)
	if err := session.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
