package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// disCmd compiles a source file and prints the disassembly.
type disCmd struct{}

func (*disCmd) Name() string     { return "dis" }
func (*disCmd) Synopsis() string { return "Compile a source file and print its disassembly" }
func (*disCmd) Usage() string {
	return `dis <file>:
  Compile Tarn code and print the disassembled bytecode.
`
}

func (d *disCmd) SetFlags(f *flag.FlagSet) {}

func (d *disCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "dis: no source file provided")
		return subcommands.ExitUsageError
	}

	bytecode, status := compileFile(args[0])
	if bytecode == nil {
		return status
	}

	fmt.Print(renderBytecode(bytecode))
	return subcommands.ExitSuccess
}
