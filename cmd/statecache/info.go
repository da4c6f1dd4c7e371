package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/statecache"
	"github.com/gogpu/statecache/internal/cachefile"
	"github.com/gogpu/statecache/internal/store"
)

func newInfoCommand(env statecache.Environment) *cobra.Command {
	return &cobra.Command{
		Use:   "info [FILE]",
		Short: "Show a summary of a cache file",
		Long:  "Show a summary of a cache file. Without FILE the default cache file of the current executable is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, pathArg(args, env))
		},
	}
}

func runInfo(cmd *cobra.Command, path string) error {
	res, err := cachefile.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Path:         %s\n", path)
	fmt.Fprintf(out, "Size:         %s\n", fileSize(path))
	if fi, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Modified:     %s\n", humanize.Time(fi.ModTime()))
	}
	fmt.Fprintf(out, "Status:       %s\n", res.Status)
	fmt.Fprintf(out, "Version:      %d\n", cachefile.Version)
	if res.Status != cachefile.StatusValid {
		return nil
	}

	s := store.New()
	var graphics, compute, duplicates int
	for _, e := range res.Entries {
		if _, added := s.AddUnique(e); !added {
			duplicates++
			continue
		}
		if e.IsCompute() {
			compute++
		} else {
			graphics++
		}
	}

	fmt.Fprintf(out, "Entries:      %s (%s graphics, %s compute)\n",
		humanize.Comma(int64(len(res.Entries))), humanize.Comma(int64(graphics)), humanize.Comma(int64(compute)))
	fmt.Fprintf(out, "Duplicates:   %d\n", duplicates)
	fmt.Fprintf(out, "Invalid:      %d\n", res.Invalid)
	return nil
}
