package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
	"github.com/grumblebean/brawl/internal/scripting"
)

func newTestManager(t testing.TB) *scripting.Manager {
	t.Helper()
	logger := zap.NewNop()
	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	return scripting.NewManager(roller, logger)
}

func writeScripts(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func scriptedEnemy(script string) *content.EnemyDef {
	return &content.EnemyDef{Type: "goblin_king", Name: "Goblin King", SpawnScript: script}
}

func TestRunHook(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"goblin_king.lua": `
			function on_spawn(enemy)
				return enemy.name .. " cackles from the throne!"
			end
		`,
	})
	require.NoError(t, mgr.LoadScripts(dir, 0))

	line, err := mgr.Run("on_spawn", scriptedEnemy("goblin_king"))
	require.NoError(t, err)
	assert.Equal(t, "Goblin King cackles from the throne!", line)
}

func TestRunHookScriptExtensionTolerated(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"goblin_king.lua": `
			function on_defeat(enemy)
				return "the crown rolls away"
			end
		`,
	})
	require.NoError(t, mgr.LoadScripts(dir, 0))

	// Enemy definitions may reference the script with or without .lua.
	line, err := mgr.Run("on_defeat", scriptedEnemy("goblin_king.lua"))
	require.NoError(t, err)
	assert.Equal(t, "the crown rolls away", line)
}

func TestRunMissingHookIsEmpty(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"goblin_king.lua": `function on_spawn(enemy) return "hi" end`,
	})
	require.NoError(t, mgr.LoadScripts(dir, 0))

	line, err := mgr.Run("on_phase", scriptedEnemy("goblin_king"))
	require.NoError(t, err)
	assert.Empty(t, line)
}

func TestRunMissingScriptErrors(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)

	_, err := mgr.Run("on_spawn", scriptedEnemy("nonexistent"))
	assert.Error(t, err)
}

func TestRunNonStringReturnIsEmpty(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"goblin_king.lua": `function on_spawn(enemy) return 42 end`,
	})
	require.NoError(t, mgr.LoadScripts(dir, 0))

	line, err := mgr.Run("on_spawn", scriptedEnemy("goblin_king"))
	require.NoError(t, err)
	assert.Empty(t, line)
}

func TestRuntimeErrorPropagates(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"goblin_king.lua": `function on_spawn(enemy) error("boom") end`,
	})
	require.NoError(t, mgr.LoadScripts(dir, 0))

	_, err := mgr.Run("on_spawn", scriptedEnemy("goblin_king"))
	assert.Error(t, err)
}

func TestLoadScriptsBadLuaFails(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"broken.lua": `function on_spawn( this is not lua`,
	})
	assert.Error(t, mgr.LoadScripts(dir, 0))
}

func TestLoadScriptsMissingDirFails(t *testing.T) {
	mgr := newTestManager(t)
	assert.Error(t, mgr.LoadScripts("/nonexistent/scripts", 0))
}

func TestDiceModuleAvailable(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"goblin_king.lua": `
			function on_spawn(enemy)
				local n = dice.between(1, 3)
				if n < 1 or n > 3 then
					return "out of range"
				end
				if dice.chance(1.0) ~= true then
					return "chance broken"
				end
				return "ok"
			end
		`,
	})
	require.NoError(t, mgr.LoadScripts(dir, 0))

	line, err := mgr.Run("on_spawn", scriptedEnemy("goblin_king"))
	require.NoError(t, err)
	assert.Equal(t, "ok", line)
}

func TestInstructionLimitTerminatesRunawayHook(t *testing.T) {
	mgr := newTestManager(t)
	t.Cleanup(mgr.Close)
	dir := writeScripts(t, map[string]string{
		"goblin_king.lua": `
			function on_spawn(enemy)
				while true do end
			end
		`,
	})
	require.NoError(t, mgr.LoadScripts(dir, 1000))

	_, err := mgr.Run("on_spawn", scriptedEnemy("goblin_king"))
	assert.Error(t, err)
}
