package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
)

// Manager owns one sandboxed LState per enemy script and dispatches the
// lifecycle hooks (on_spawn, on_phase, on_defeat) the encounter engine asks
// for.
//
// Manager is safe for concurrent Run after LoadScripts completes. Each
// script's LState is single-threaded; the mutex serializes hook calls.
type Manager struct {
	mu      sync.Mutex
	states  map[string]*lua.LState
	cancels map[string]func()
	roller  *dice.Roller
	logger  *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no scripts loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{
		states:  make(map[string]*lua.LState),
		cancels: make(map[string]func()),
		roller:  roller,
		logger:  logger.Named("scripting"),
	}
}

// LoadScripts creates one sandboxed VM per *.lua file in scriptDir, keyed by
// the file name without extension. Enemy definitions reference scripts by
// that key.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: All scripts are registered; returns error on Lua load failure.
func (m *Manager) LoadScripts(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".lua")
		if err := m.loadScript(key, filepath.Join(scriptDir, e.Name()), instLimit); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) loadScript(key, path string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	if err := L.DoFile(path); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: loading %q: %w", path, err)
	}

	m.mu.Lock()
	if old, ok := m.states[key]; ok {
		if oldCancel := m.cancels[key]; oldCancel != nil {
			oldCancel()
		}
		old.Close()
	}
	m.states[key] = L
	m.cancels[key] = cancel
	m.mu.Unlock()
	return nil
}

// Close releases every loaded VM.
//
// Postcondition: The Manager holds no scripts; Run returns errors for all
// enemies afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, L := range m.states {
		if cancel := m.cancels[key]; cancel != nil {
			cancel()
		}
		L.Close()
	}
	m.states = make(map[string]*lua.LState)
	m.cancels = make(map[string]func())
}

// Run calls the named hook function in the enemy's script VM and returns
// its string result. A missing hook returns ("", nil) so enemies only need
// to define the moments they care about.
//
// Precondition: enemy.SpawnScript must name a loaded script.
// Postcondition: Returns the hook's first return value as a string, or an
// error for missing scripts and Lua runtime failures.
func (m *Manager) Run(hook string, enemy *content.EnemyDef) (string, error) {
	key := strings.TrimSuffix(enemy.SpawnScript, ".lua")

	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[key]
	if !ok {
		return "", fmt.Errorf("scripting: no script %q loaded for enemy %q", key, enemy.Type)
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return "", nil
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, enemyTable(L, enemy)); err != nil {
		return "", fmt.Errorf("scripting: hook %q for enemy %q: %w", hook, enemy.Type, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	if s, ok := ret.(lua.LString); ok {
		return string(s), nil
	}
	return "", nil
}

// enemyTable builds the read-only snapshot of the enemy passed to hooks.
func enemyTable(L *lua.LState, enemy *content.EnemyDef) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "type", lua.LString(enemy.Type))
	L.SetField(t, "name", lua.LString(enemy.Name))
	L.SetField(t, "description", lua.LString(enemy.Description))
	L.SetField(t, "level", lua.LNumber(enemy.Level))
	L.SetField(t, "boss", lua.LBool(enemy.Boss))
	L.SetField(t, "next_phase", lua.LString(enemy.NextPhase))
	return t
}
