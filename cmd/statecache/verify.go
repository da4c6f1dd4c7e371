package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/statecache/internal/cachefile"
)

var errVerifyFailed = errors.New("one or more cache files failed verification")

type verifyOptions struct {
	fix bool
}

func newVerifyCommand() *cobra.Command {
	var opts verifyOptions
	cmd := &cobra.Command{
		Use:   "verify FILE [FILE...]",
		Short: "Check the integrity of cache files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.fix, "fix", false, "rewrite damaged files keeping only valid entries")
	return cmd
}

func runVerify(cmd *cobra.Command, opts verifyOptions, paths []string) error {
	out := cmd.OutOrStdout()
	failed := false
	for _, path := range paths {
		res, err := cachefile.Load(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed = true
			continue
		}

		switch {
		case res.Status == cachefile.StatusMissing:
			fmt.Fprintf(out, "%s: missing\n", path)
			failed = true
			continue
		case !res.NeedsRewrite():
			fmt.Fprintf(out, "%s: ok, %d entries\n", path, len(res.Entries))
			continue
		}

		fmt.Fprintf(out, "%s: %s, %d valid entries, %d invalid\n", path, res.Status, len(res.Entries), res.Invalid)
		if !opts.fix {
			failed = true
			continue
		}
		if err := cachefile.Rewrite(path, res.Entries); err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Fprintf(out, "%s: rewritten with %d entries\n", path, len(res.Entries))
	}

	if failed {
		return errVerifyFailed
	}
	return nil
}
