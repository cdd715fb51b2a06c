package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matovitch/wasp/cmd/wasp/dump"
	"github.com/matovitch/wasp/cmd/wasp/validate"
)

var version = "<unknown>"

func configureCLI() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "wasp",
		Short:         "wasp WebAssembly toolkit",
		Long:          "wasp - a decoder, formatter, and validator for WebAssembly modules",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCommand.AddCommand(dump.Command())
	rootCommand.AddCommand(validate.Command())

	return rootCommand
}

func main() {
	rootCommand := configureCLI()

	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
