package statecache

import (
	"context"
	"log/slog"

	"github.com/gogpu/statecache/state"
)

// compile builds the pipelines of every entry recorded for one resolved
// shader set. It runs on a worker goroutine. Failures are logged and
// counted; the remaining entries are still compiled.
func (c *Cache) compile(set ShaderSet) {
	combo := CombinationOf(set)
	entries := c.entries.Entries(combo)
	if len(entries) == 0 {
		return
	}

	if combo.IsCompute() {
		c.compileCompute(combo, set[state.StageCompute], entries)
	} else {
		c.compileGraphics(combo, set, entries)
	}
}

func (c *Cache) compileGraphics(combo state.CombinationKey, set ShaderSet, entries []state.Entry) {
	pipe, err := c.pipes.CreateGraphicsPipeline(set)
	if err != nil {
		c.compileFailed(combo, "create graphics pipeline", err)
		c.compileFailures.Add(uint64(len(entries) - 1))
		return
	}

	for i := range entries {
		e := &entries[i]
		var pass RenderPass
		if c.passes != nil {
			pass, err = c.passes.RenderPass(e.Format)
			if err != nil {
				c.compileFailed(combo, "get render pass", err)
				continue
			}
		}
		if err := pipe.PipelineHandle(e.Graphics, pass); err != nil {
			c.compileFailed(combo, "compile graphics pipeline", err)
			continue
		}
		c.compiled.Add(1)
	}
}

func (c *Cache) compileCompute(combo state.CombinationKey, cs Shader, entries []state.Entry) {
	pipe, err := c.pipes.CreateComputePipeline(cs)
	if err != nil {
		c.compileFailed(combo, "create compute pipeline", err)
		c.compileFailures.Add(uint64(len(entries) - 1))
		return
	}

	for i := range entries {
		if err := pipe.PipelineHandle(entries[i].Compute); err != nil {
			c.compileFailed(combo, "compile compute pipeline", err)
			continue
		}
		c.compiled.Add(1)
	}
}

// compileFailed counts one failed entry and logs it at debug level.
func (c *Cache) compileFailed(combo state.CombinationKey, op string, err error) {
	c.compileFailures.Add(1)
	c.log.LogAttrs(context.Background(), slog.LevelDebug, "statecache: "+op+" failed",
		slog.String("shaders", combo.String()),
		slog.Any("error", err))
}
