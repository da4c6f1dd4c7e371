package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/statecache/internal/cachefile"
	"github.com/gogpu/statecache/internal/store"
)

type mergeOptions struct {
	output string
}

func newMergeCommand() *cobra.Command {
	var opts mergeOptions
	cmd := &cobra.Command{
		Use:   "merge -o OUTPUT FILE [FILE...]",
		Short: "Merge cache files, dropping duplicate and invalid entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "file to write the merged cache to")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runMerge(cmd *cobra.Command, opts mergeOptions, inputs []string) error {
	out := cmd.OutOrStdout()
	s := store.New()
	var read, duplicates, invalid int

	for _, path := range inputs {
		res, err := cachefile.Load(path)
		if err != nil {
			return err
		}
		switch res.Status {
		case cachefile.StatusMissing:
			return fmt.Errorf("%s: no such cache file", path)
		case cachefile.StatusStale:
			fmt.Fprintf(out, "%s: skipped, cache file is stale\n", path)
			continue
		}
		invalid += res.Invalid
		for _, e := range res.Entries {
			read++
			if _, added := s.AddUnique(e); !added {
				duplicates++
			}
		}
	}
	if read == 0 && invalid == 0 {
		return errors.New("no entries to merge")
	}

	entries := s.Snapshot()
	if err := cachefile.Rewrite(opts.output, entries); err != nil {
		return err
	}
	fmt.Fprintf(out, "Merged %s entries into %s (%s), dropped %d duplicates and %d invalid\n",
		humanize.Comma(int64(len(entries))), opts.output, fileSize(opts.output), duplicates, invalid)
	return nil
}
