package loader

import "sync"

// LoadingManager counts tile loads and reports progress through optional hooks.
// Hooks run on the goroutine that reported the event, without locks held.
type LoadingManager struct {
	mu      sync.Mutex
	loading int
	loaded  int
	total   int
	failed  int

	OnStart    func(item string, loaded, total int)
	OnProgress func(item string, loaded, total int)
	OnLoad     func()
	OnError    func(item string, err error)
}

// NewLoadingManager creates a manager with no hooks.
func NewLoadingManager() *LoadingManager {
	return &LoadingManager{}
}

// Counts is a snapshot of a LoadingManager.
type Counts struct {
	Loading int
	Loaded  int
	Total   int
	Failed  int
}

// Counts returns the current counters.
func (m *LoadingManager) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Counts{Loading: m.loading, Loaded: m.loaded, Total: m.total, Failed: m.failed}
}

// ItemStart records a load beginning.
func (m *LoadingManager) ItemStart(item string) {
	m.mu.Lock()
	m.total++
	m.loading++
	loaded, total := m.loaded, m.total
	m.mu.Unlock()

	if m.OnStart != nil {
		m.OnStart(item, loaded, total)
	}
}

// ItemEnd records a load finishing.
func (m *LoadingManager) ItemEnd(item string) {
	m.mu.Lock()
	m.settle()
	m.loaded++
	loaded, total, idle := m.loaded, m.total, m.loading == 0
	m.mu.Unlock()

	if m.OnProgress != nil {
		m.OnProgress(item, loaded, total)
	}
	if idle && m.OnLoad != nil {
		m.OnLoad()
	}
}

// ItemError records a load that produced nothing.
func (m *LoadingManager) ItemError(item string, err error) {
	m.mu.Lock()
	m.settle()
	m.failed++
	idle := m.loading == 0
	m.mu.Unlock()

	if m.OnError != nil {
		m.OnError(item, err)
	}
	if idle && m.OnLoad != nil {
		m.OnLoad()
	}
}

// settle drops one in-flight item. Loads started before a Reset may finish
// after it, so the count never goes below zero.
func (m *LoadingManager) settle() {
	if m.loading > 0 {
		m.loading--
	}
}

// Reset zeroes the counters. Hooks are kept.
func (m *LoadingManager) Reset() {
	m.mu.Lock()
	m.loading, m.loaded, m.total, m.failed = 0, 0, 0, 0
	m.mu.Unlock()
}
