// Command statecache inspects and maintains pipeline state cache files.
package main

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/statecache"
)

func main() {
	if err := newRootCommand(os.Stdout, statecache.OSEnvironment()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer, env statecache.Environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "statecache",
		Short:        "Inspect and maintain pipeline state cache files",
		SilenceUsage: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	cmd.AddCommand(
		newInfoCommand(env),
		newVerifyCommand(),
		newListCommand(),
		newMergeCommand(),
	)
	return cmd
}

// pathArg returns the cache file named on the command line, or the default
// cache file of the environment.
func pathArg(args []string, env statecache.Environment) string {
	if len(args) > 0 {
		return args[0]
	}
	return statecache.CachePath(env)
}

func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(fi.Size())) //nolint:gosec // file sizes are non-negative
}
