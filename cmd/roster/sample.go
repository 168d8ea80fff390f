package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/roster/internal/sample"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type sampleOptions struct {
	count    int
	seed     uint64
	topTier  int
	noHeroes bool
	wrap     bool
	output   string
}

func newSampleCmd() *cobra.Command {
	var opts sampleOptions
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print a synthetic roster",
		Long:  "Prints generated candidate records whose tier drops every three entries. Use --wrap to get a body ready for PUT /rosters/{id}.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSample(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.count, "count", "n", 20, "Number of records")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&opts.topTier, "top-tier", 16, "Tier of the first three records")
	cmd.Flags().BoolVar(&opts.noHeroes, "no-heroes", false, "Omit sub attributes")
	cmd.Flags().BoolVar(&opts.wrap, "wrap", false, `Wrap records as {"records": [...]}`)
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputJSON, "Output format: json or yaml")
	return cmd
}

func runSample(w io.Writer, opts sampleOptions) error {
	genOpts := []sample.Option{sample.WithSeed(opts.seed), sample.WithTopTier(opts.topTier)}
	if opts.noHeroes {
		genOpts = append(genOpts, sample.WithoutHeroes())
	}
	var doc any = sample.Roster(opts.count, genOpts...)
	if opts.wrap {
		doc = map[string]any{"records": doc}
	}

	switch opts.output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", opts.output)
	}
}
