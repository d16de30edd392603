package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"github.com/nikandfor/errors"
	"tlog.app/go/tlog"

	"github.com/konteck/candor/compiler"
	"github.com/konteck/candor/compiler/config"
	"github.com/konteck/candor/compiler/format"
	"github.com/konteck/candor/compiler/hir"
)

func main() {
	dumpHIRCmd := &cli.Command{
		Name:   "dump-hir",
		Action: dumpHIRAct,
		Args:   cli.Args{},
	}

	dumpLIRCmd := &cli.Command{
		Name:   "dump-lir",
		Action: dumpLIRAct,
		Args:   cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:   "compile",
		Action: compileAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "candorc",
		Description: "candorc drives the candor middle-end over one of its built-in demo functions",
		Commands: []*cli.Command{
			dumpHIRCmd,
			dumpLIRCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func demoArg(c *cli.Command) string {
	if len(c.Args) == 0 {
		return "add"
	}

	return c.Args[0]
}

func dumpHIRAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	top := demo(demoArg(c))

	g, err := hir.Build(ctx, top)
	if err != nil {
		return errors.Wrap(err, "build hir")
	}

	for _, fn := range g.Funcs {
		fmt.Printf("%s", format.HIR(nil, fn))
	}

	return nil
}

func dumpLIRAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	top := demo(demoArg(c))

	results, err := compiler.Compile(ctx, config.Config{}, top)
	if err != nil {
		return errors.Wrap(err, "compile")
	}

	for _, r := range results {
		dump := format.LIR(nil, r.Func)
		dump = format.IntervalMap(dump, r.Func)
		fmt.Printf("%s", dump)
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	top := demo(demoArg(c))

	results, err := compiler.Compile(ctx, config.Config{Fullgen: true, DumpHIR: true, DumpLIR: true}, top)
	if err != nil {
		return errors.Wrap(err, "compile")
	}

	fmt.Printf("compiled %d function(s)\n", len(results))

	return nil
}
