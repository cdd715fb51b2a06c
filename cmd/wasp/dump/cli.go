// Package dump implements the "wasp dump" subcommand: print a
// WebAssembly module's section headers, text disassembly, structural
// details, raw section contents, or a per-function instruction-mix
// CSV, selected by flag.
package dump

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matovitch/wasp/cmd/wasp/load"
	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/format"
)

// Command builds the "dump" cobra command.
func Command() *cobra.Command {
	var headers bool
	var disassemble bool
	var details bool
	var fullContents bool
	var section string
	var stats bool
	var featureList string

	command := &cobra.Command{
		Use:   "dump [path to module]...",
		Short: "Dump WebAssembly modules",
		Long:  "Dump WebAssembly modules as section headers, text disassembly, structural detail, or raw contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !headers && !disassemble && !details && !fullContents && !stats {
				return errors.New("at least one of -h, -d, -x, -s, or --stats is required")
			}
			if len(args) == 0 {
				return errors.New("expected at least one input file")
			}

			features, err := parseFeatureList(featureList)
			if err != nil {
				return err
			}

			for _, path := range args {
				if err := dumpFile(cmd, path, features, options{
					headers:      headers,
					disassemble:  disassemble,
					details:      details,
					fullContents: fullContents,
					section:      section,
					stats:        stats,
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	command.Flags().BoolVarP(&headers, "headers", "h", false, "display section headers")
	command.Flags().BoolVarP(&disassemble, "disassemble", "d", false, "disassemble function bodies as WebAssembly text")
	command.Flags().BoolVarP(&details, "details", "x", false, "display full section details")
	command.Flags().BoolVarP(&fullContents, "full-contents", "s", false, "display raw section contents as a hex dump")
	command.Flags().StringVarP(&section, "section", "j", "", "restrict output to the named section")
	command.Flags().BoolVar(&stats, "stats", false, "dump per-function instruction-mix statistics as CSV")
	command.Flags().StringVar(&featureList, "features", "", "comma-separated list of proposal features to enable while decoding")

	return command
}

type options struct {
	headers      bool
	disassemble  bool
	details      bool
	fullContents bool
	section      string
	stats        bool
}

func parseFeatureList(list string) (feature.Set, error) {
	set := feature.MVP
	if list == "" {
		return set, nil
	}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		flag, ok := feature.ByName(name)
		if !ok {
			return set, fmt.Errorf("unknown feature %q", name)
		}
		set = set.With(flag)
	}
	return set, nil
}

func dumpFile(cmd *cobra.Command, path string, features feature.Set, opts options) error {
	m, sink, err := load.File(path, features)
	if err != nil {
		return err
	}
	for _, d := range sink.Diagnostics() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, d.String())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s:\n", path)

	if opts.headers {
		printHeaders(out, m, opts.section)
	}
	if opts.details {
		printDetails(out, m, opts.section)
	}
	if opts.fullContents {
		printFullContents(out, m, opts.section)
	}
	if opts.disassemble {
		text, err := format.String(m)
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
	}
	if opts.stats {
		if err := dumpStats(out, m); err != nil {
			return err
		}
	}
	return nil
}

func sectionMatches(name, filter string) bool {
	return filter == "" || strings.EqualFold(name, filter)
}
