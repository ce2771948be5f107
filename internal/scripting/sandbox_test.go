package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"
)

func TestSandboxStripsDangerousGlobals(t *testing.T) {
	L, cancel := NewSandboxedState(0)
	defer cancel()
	defer L.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "global %q should be stripped", name)
	}
}

func TestSandboxSafeLibsAvailable(t *testing.T) {
	L, cancel := NewSandboxedState(0)
	defer cancel()
	defer L.Close()

	err := L.DoString(`
		local s = string.upper("abc")
		local n = math.max(1, 2)
		local t = {}
		table.insert(t, s)
		result = t[1] .. tostring(n)
	`)
	assert.NoError(t, err)
	assert.Equal(t, "ABC2", lua.LVAsString(L.GetGlobal("result")))
}

func TestSandboxInstructionLimit(t *testing.T) {
	L, cancel := NewSandboxedState(500)
	defer cancel()
	defer L.Close()

	err := L.DoString(`while true do end`)
	assert.Error(t, err)
}

func TestSandboxZeroLimitUsesDefault(t *testing.T) {
	L, cancel := NewSandboxedState(0)
	defer cancel()
	defer L.Close()

	// Well under the default limit.
	err := L.DoString(`
		local acc = 0
		for i = 1, 100 do acc = acc + i end
	`)
	assert.NoError(t, err)
}
