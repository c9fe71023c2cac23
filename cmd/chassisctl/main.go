// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command chassisctl inspects and drives the GPIO lines, CPLD registers and
// fan modules of a switch chassis.
//
// Usage:
//
//	chassisctl [-board name | -config file] [-v] <command> <subcommand> [args]
//
// Commands:
//
//	gpio list | get <pin> | set <pin> <0|1> | dir <pin> <in|out> [0|1]
//	cpld read <device> <offset> | write <device> <offset> <value> | dump <device> | field <name> [value]
//	fan info [name] | dump <name>
//	config show | boards
//	smoke [-pin name] [-loops n]
package main // import "github.com/sonic-platform/chassis/cmd/chassisctl"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/sonic-platform/chassis/config"
)

func main() {
	log.SetPrefix("chassisctl: ")
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		log.Fatalf("%+v", err)
	}
}

// env carries the global flags to the commands.
type env struct {
	board   string
	cfgPath string
	w       io.Writer
}

// config returns the chassis description selected by the global flags.
func (e *env) config() (*config.Config, error) {
	switch {
	case e.cfgPath != "":
		return config.Load(e.cfgPath)
	case e.board != "":
		return config.Builtin(e.board)
	default:
		return config.Detect()
	}
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"gpio":   gpioCmd,
	"cpld":   cpldCmd,
	"fan":    fanCmd,
	"config": configCmd,
	"smoke":  smokeCmd,
}

func run(ctx context.Context, args []string, w io.Writer) error {
	f := flag.NewFlagSet("chassisctl", flag.ContinueOnError)
	e := &env{w: w}
	f.StringVar(&e.board, "board", "", "use the built-in description of this board")
	f.StringVar(&e.cfgPath, "config", "", "chassis description file; overrides -board and detection")
	verbose := f.Bool("v", false, "verbose logging")
	f.Usage = func() {
		fmt.Fprintf(f.Output(), "usage: chassisctl [flags] <%s> ...\n", strings.Join(commandNames(), "|"))
		f.PrintDefaults()
	}
	if err := f.Parse(args); err != nil {
		return err
	}
	if !*verbose {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}
	if f.NArg() == 0 {
		f.Usage()
		return errors.New("missing command")
	}
	cmd, ok := commands[f.Arg(0)]
	if !ok {
		f.Usage()
		return fmt.Errorf("unknown command %q", f.Arg(0))
	}
	return cmd(ctx, e, f.Args()[1:])
}

func commandNames() []string {
	out := make([]string, 0, len(commands))
	for n := range commands {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// expect fails unless args holds between lo and hi arguments.
func expect(args []string, lo, hi int, usage string) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}
