// Copyright 2024 The probeum/avm Authors
// This file is part of go-probeum.
//
// go-probeum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-probeum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-probeum. If not, see <http://www.gnu.org/licenses/>.

// Command avmrun loads a single compiled module and runs one exported
// function to completion: avmrun <module.beam> <function> <arity> [args...].
// It is deliberately thin, just enough ambient surface to exercise the
// interpreter end to end; it is not a node, and it does not know about the
// container/bundle format multi-module deployments would use.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/urfave/cli.v1"

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/avmconfig"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
	"github.com/probeum/avm/vm"
)

var app = cli.NewApp()

func init() {
	app.Name = "avmrun"
	app.Usage = "run a single compiled module to completion"
	app.ArgsUsage = "<module.beam> <function> <arity> [args...]"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "TOML file overriding the default scheduler/heap tunables",
		},
	}
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) < 3 {
		return cli.NewExitError("usage: avmrun <module.beam> <function> <arity> [args...]", 1)
	}
	modulePath, funcName, arityArg := args[0], args[1], args[2]
	arity, err := strconv.Atoi(arityArg)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("bad arity %q: %v", arityArg, err), 1)
	}
	argv := args[3:]
	if len(argv) != arity {
		return cli.NewExitError(fmt.Sprintf("function takes %d args, %d given", arity, len(argv)), 1)
	}

	cfg := avmconfig.Default()
	if path := ctx.String("config"); path != "" {
		if cfg, err = avmconfig.Load(path); err != nil {
			return cli.NewExitError(fmt.Sprintf("loading config: %v", err), 1)
		}
	}

	g := vm.NewGlobal(cfg)

	f, err := os.Open(modulePath)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("opening %s: %v", modulePath, err), 1)
	}
	defer f.Close()
	mod, err := g.LoadModule(f)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("loading %s: %v", modulePath, err), 1)
	}

	moduleAtom := term.FromAtom(mod.Atom)
	functionAtom := term.FromAtom(g.Atoms.Insert(funcName))
	root, ok := g.SpawnRoot(moduleAtom, functionAtom, arity)
	if !ok {
		return cli.NewExitError(fmt.Sprintf("%s:%s/%d is not exported", modulePath, funcName, arity), 1)
	}
	if err := placeArgs(root, argv); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	g.Run()

	if g.Sched.IsAlive(root.Pid) {
		return cli.NewExitError("process never terminated: blocked in an unbounded receive with no other runnable process", 1)
	}
	if !(term.IsAtom(root.ExitReason) && term.AtomID(root.ExitReason) == atomtable.IDNormal) {
		fmt.Fprintln(os.Stderr, "process crashed:")
		fmt.Fprintln(os.Stderr, spew.Sdump(root.ExitReason))
		return cli.NewExitError("", 1)
	}
	fmt.Println(spew.Sdump(root.XRegs[0]))
	return nil
}

// placeArgs decodes each command-line argument as a signed decimal integer
// and writes it into root's X registers; avmrun has no surface for passing
// richer term shapes (atoms, tuples, lists) from a shell argv.
func placeArgs(root *process.Context, argv []string) error {
	for i, a := range argv {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("arg %d (%q): only integer literals are supported: %v", i, a, err)
		}
		root.XRegs[i] = root.Heap.NewInt(v)
	}
	return nil
}
