package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// The global registry is populated from init() functions in module
// packages; importing a module package is what makes it available.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]ModuleInfo)
)

// RegisterModule records a module so App.LoadModules can instantiate it by
// ID. The instance is only used to read its ModuleInfo. Panics on a
// duplicate or malformed registration, since that is a programming error
// surfaced at process start.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("module ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	id := string(info.ID)
	if _, taken := registry[id]; taken {
		panic(fmt.Sprintf("module already registered: %s", id))
	}
	registry[id] = info
}

// GetModule looks up a registered module by ID.
func GetModule(id string) (ModuleInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[id]
	return info, ok
}

// GetModules returns every registered module, sorted by ID.
func GetModules() []ModuleInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]ModuleInfo, 0, len(registry))
	for _, info := range registry {
		out = append(out, info)
	}
	sortByID(out)
	return out
}

// GetModulesByNamespace returns the registered modules under a namespace
// prefix, so "channel" matches "channel.telegram" but not "channels.x".
func GetModulesByNamespace(namespace string) []ModuleInfo {
	prefix := namespace + "."

	registryMu.RLock()
	defer registryMu.RUnlock()

	var out []ModuleInfo
	for id, info := range registry {
		if strings.HasPrefix(id, prefix) {
			out = append(out, info)
		}
	}
	sortByID(out)
	return out
}

func sortByID(infos []ModuleInfo) {
	slices.SortFunc(infos, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ModuleInfo)
}
