package statecache

import "github.com/gogpu/statecache/state"

// ShaderKeyOf returns the key of s, or the null key when s is nil.
func ShaderKeyOf(s Shader) state.ShaderKey {
	if s == nil {
		return state.NullShaderKey
	}
	return s.Key()
}

// CombinationOf returns the combination key of a shader set. Nil slots
// produce null keys.
func CombinationOf(set ShaderSet) state.CombinationKey {
	var c state.CombinationKey
	for i, s := range set {
		c.Stages[i] = ShaderKeyOf(s)
	}
	return c
}
