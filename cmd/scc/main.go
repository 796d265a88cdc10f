package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/scc/src/compiler"
)

func main() {
	genCmd := &cli.Command{
		Name:   "gen",
		Action: genAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "scc",
		Description: "scc lowers C syntax trees to intermediate representation",
		Commands: []*cli.Command{
			genCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func genAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		out, err := compiler.GenFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "gen %v", a)
		}

		fmt.Printf("%s", out)
	}

	return nil
}
