package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/statecache/internal/cachefile"
	"github.com/gogpu/statecache/state"
)

type listOptions struct {
	shader  string
	digests bool
	limit   int
}

func newListCommand() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:     "list FILE",
		Aliases: []string{"ls"},
		Short:   "List the entries of a cache file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.shader, "shader", "", "only list entries using the shader with this digest")
	flags.BoolVar(&opts.digests, "digests", false, "print full shader digests")
	flags.IntVarP(&opts.limit, "limit", "n", 0, "print at most this many entries (0 for all)")
	return cmd
}

func runList(cmd *cobra.Command, opts listOptions, path string) error {
	var filter state.ShaderKey
	if opts.shader != "" {
		k, err := state.ParseShaderKey(opts.shader)
		if err != nil {
			return err
		}
		filter = k
	}

	res, err := cachefile.Load(path)
	if err != nil {
		return err
	}
	if res.Status != cachefile.StatusValid {
		return fmt.Errorf("%s: cache file is %s", path, res.Status)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tKIND\tSHADERS\tHASH")
	printed := 0
	for i := range res.Entries {
		e := &res.Entries[i]
		if !filter.IsNull() && !uses(e.Shaders, filter) {
			continue
		}
		if opts.limit > 0 && printed == opts.limit {
			break
		}
		kind := "graphics"
		if e.IsCompute() {
			kind = "compute"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%x\n", i, kind, shaderColumn(e.Shaders, opts.digests), e.Hash[:6])
		printed++
	}
	return w.Flush()
}

func uses(c state.CombinationKey, k state.ShaderKey) bool {
	found := false
	c.Each(func(_ state.Stage, key state.ShaderKey) {
		found = found || key == k
	})
	return found
}

func shaderColumn(c state.CombinationKey, digests bool) string {
	if !digests {
		return c.String()
	}
	var parts []string
	c.Each(func(s state.Stage, k state.ShaderKey) {
		parts = append(parts, s.String()+"="+k.Digest().String())
	})
	return strings.Join(parts, " ")
}
