package scripting

import lua "github.com/yuin/gopher-lua"

// RegisterModules registers the dice.* Lua table into L so hooks can vary
// their lines.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: dice global is defined in L with between and chance.
func (m *Manager) RegisterModules(L *lua.LState) {
	diceTable := L.NewTable()

	L.SetField(diceTable, "between", L.NewFunction(func(L *lua.LState) int {
		min := L.CheckInt(1)
		max := L.CheckInt(2)
		if max < min {
			L.ArgError(2, "max must be >= min")
			return 0
		}
		L.Push(lua.LNumber(m.roller.Between(min, max)))
		return 1
	}))

	L.SetField(diceTable, "chance", L.NewFunction(func(L *lua.LState) int {
		p := float64(L.CheckNumber(1))
		L.Push(lua.LBool(m.roller.Chance(p)))
		return 1
	}))

	L.SetGlobal("dice", diceTable)
}
