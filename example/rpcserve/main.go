package main

import (
	"os"

	"github.com/mitchellh/cli"
	"github.com/mnehpets/rpcserve/commands"
)

const version = "0.1.0"

func main() {
	c := &cli.CLI{
		Name:    "rpcserve",
		Version: version,
		Args:    os.Args[1:],
	}

	ui := &cli.ColoredUi{
		ErrorColor: cli.UiColorRed,
		WarnColor:  cli.UiColorYellow,
		Ui: &cli.BasicUi{
			Writer:      os.Stdout,
			Reader:      os.Stdin,
			ErrorWriter: os.Stderr,
		},
	}

	c.Commands = map[string]cli.CommandFactory{
		"serve": func() (cli.Command, error) {
			return &commands.ServeCommand{Ui: ui, Version: version, EnvFile: ".env"}, nil
		},
		"call": func() (cli.Command, error) {
			return &commands.CallCommand{Ui: ui, EnvFile: ".env"}, nil
		},
		"batch": func() (cli.Command, error) {
			return &commands.BatchCommand{Ui: ui, EnvFile: ".env"}, nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		ui.Error("Error: " + err.Error())
	}

	os.Exit(exitStatus)
}
