package lint

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// defaultRegistry is the registry rule packages register into from init().
var defaultRegistry = NewRegistry()

// Registry stores registered lint rules for discovery.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]RuleDef // keyed by ID
	keys  map[string]string  // lower-cased ID, name or alias -> ID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]RuleDef),
		keys:  make(map[string]string),
	}
}

// Register adds a rule. It fails when the ID is empty, the check is missing
// or one of the rule's keys already belongs to another rule.
func (r *Registry) Register(rule RuleDef) error {
	if rule.ID == "" {
		return fmt.Errorf("lint: rule without id")
	}
	if rule.Check == nil {
		return fmt.Errorf("lint: rule %s has no check", rule.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range rule.Keys() {
		if owner, ok := r.keys[strings.ToLower(key)]; ok && owner != rule.ID {
			return fmt.Errorf("lint: rule %s: key %q already used by %s", rule.ID, key, owner)
		}
	}
	r.rules[rule.ID] = rule
	for _, key := range rule.Keys() {
		r.keys[strings.ToLower(key)] = rule.ID
	}
	return nil
}

// GetAll returns all registered rules sorted by ID.
func (r *Registry) GetAll() []RuleDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]RuleDef, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// GetByID returns a rule by its ID.
func (r *Registry) GetByID(id string) (RuleDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	return rule, ok
}

// Resolve maps an ID, name or alias to a rule ID. Matching ignores case.
func (r *Registry) Resolve(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.keys[strings.ToLower(strings.TrimSpace(key))]
	return id, ok
}

// GetByGroup returns all rules in a specific group sorted by ID.
func (r *Registry) GetByGroup(group string) []RuleDef {
	var rules []RuleDef
	for _, rule := range r.GetAll() {
		if rule.Group == group {
			rules = append(rules, rule)
		}
	}
	return rules
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Register adds a rule to the default registry.
// Call this from init() functions in rule packages; it panics on an invalid rule.
func Register(rule RuleDef) {
	if err := defaultRegistry.Register(rule); err != nil {
		panic(err)
	}
}

// DefaultRegistry returns the registry that rule packages register into.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// GetAll returns all rules in the default registry.
func GetAll() []RuleDef {
	return defaultRegistry.GetAll()
}

// GetByID returns a rule from the default registry.
func GetByID(id string) (RuleDef, bool) {
	return defaultRegistry.GetByID(id)
}
