package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/segclock/cmd/segclock/clock"
	"github.com/temoto/segclock/cmd/segclock/diag"
	"github.com/temoto/segclock/cmd/segclock/subcmd"
	"github.com/temoto/segclock/internal/state"
	"github.com/temoto/segclock/internal/tele"
	"github.com/temoto/segclock/log2"
)

var log = log2.NewStderr(log2.LInfo)

var modules = []subcmd.Mod{
	clock.Mod,
	diag.DisplayMod,
	diag.WeatherMod,
}

func main() {
	flagConfig := flag.String("config", state.DefaultConfigPath, "HCL config file")
	flagEnv := flag.String("env", state.DefaultEnvPath, "optional dotenv file with secrets")
	flag.Usage = usage
	flag.Parse()

	if subcmd.SdNotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		log.SetFlags(log2.LInteractiveFlags)
	} else {
		log.SetFlags(log2.LStdFlags)
	}

	cmdName := flag.Arg(0)
	if cmdName == "" {
		cmdName = clock.Mod.Name
	}
	mod, err := subcmd.Parse(cmdName, modules)
	if err != nil {
		usage()
		log.Fatal(err)
	}

	if err := state.LoadEnvFile(log, *flagEnv); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	config.ApplyEnv(nil)

	ctx, g := state.NewContext(log, tele.New())
	if err := mod.Main(ctx, config); err != nil {
		g.Fatal(err)
	}
	g.Log.Debugf("exit")
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [flags] [command]\n\ncommands:\n", os.Args[0])
	for _, m := range modules {
		fmt.Fprintf(w, "  %-14s %s\n", m.Name, m.Usage)
	}
	fmt.Fprintf(w, "\nflags:\n")
	flag.PrintDefaults()
}
