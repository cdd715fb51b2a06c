// Package validate implements the "wasp validate" subcommand: decode
// each input file and run it through the validate package's visitor
// entry point, reporting every diagnostic raised along the way.
package validate

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matovitch/wasp/cmd/wasp/load"
	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/validate"
)

// Command builds the "validate" cobra command.
func Command() *cobra.Command {
	var verbose bool
	enabled := map[feature.Flag]*bool{}

	command := &cobra.Command{
		Use:   "validate [path to module]...",
		Short: "Validate WebAssembly modules",
		Long:  "Decode and validate WebAssembly modules, exiting nonzero if any input is invalid",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("expected at least one input file")
			}

			features := feature.MVP
			for flag, on := range enabled {
				if *on {
					features = features.With(flag)
				}
			}

			allOK := true
			for _, path := range args {
				ok, err := validateFile(cmd, path, features, verbose)
				if err != nil {
					return err
				}
				allOK = allOK && ok
			}
			if !allOK {
				return errors.New("validation failed")
			}
			return nil
		},
	}

	command.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every diagnostic, not just the failure count")

	for _, flag := range feature.All() {
		on := new(bool)
		enabled[flag] = on
		command.Flags().BoolVar(on, "enable-"+flag.String(), false, "enable the "+flag.String()+" proposal while decoding")
	}

	return command
}

type reportingVisitor struct {
	validate.NopVisitor
}

func validateFile(cmd *cobra.Command, path string, features feature.Set, verbose bool) (bool, error) {
	m, sink, err := load.File(path, features)
	if err != nil {
		return false, err
	}
	if sink.HasErrors() {
		reportDiagnostics(cmd, path, sink.Diagnostics(), verbose)
		return false, nil
	}

	ok := validate.Visit(m, reportingVisitor{})
	if !ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: FAIL\n", path)
		return false, nil
	}
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", path)
	}
	return true, nil
}

func reportDiagnostics(cmd *cobra.Command, path string, diagnostics []diag.Diagnostic, verbose bool) {
	if verbose {
		for _, d := range diagnostics {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, d.String())
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: FAIL (%d diagnostic(s) decoding)\n", path, len(diagnostics))
}
