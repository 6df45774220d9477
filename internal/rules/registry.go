package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Rule)
	mu       sync.RWMutex
)

func Register(r Rule) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[r.ID()]; exists {
		panic(fmt.Sprintf("rule %s already registered", r.ID()))
	}
	registry[r.ID()] = r
}

func List() []Rule {
	mu.RLock()
	defer mu.RUnlock()
	var rules []Rule
	for _, r := range registry {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID() < rules[j].ID()
	})
	return rules
}

// Categories returns the distinct categories of all registered rules, sorted.
func Categories() []string {
	mu.RLock()
	defer mu.RUnlock()
	seen := make(map[string]struct{})
	for _, r := range registry {
		seen[r.Category()] = struct{}{}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// ListCategory returns the rules of one category, sorted by ID.
// Matching is case-insensitive.
func ListCategory(category string) []Rule {
	mu.RLock()
	defer mu.RUnlock()
	var rules []Rule
	for _, r := range registry {
		if strings.EqualFold(r.Category(), category) {
			rules = append(rules, r)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID() < rules[j].ID()
	})
	return rules
}

// Resolve selects rules by a comma-separated list of rule IDs.
// An empty selector returns all rules.
func Resolve(selector string) ([]Rule, error) {
	mu.RLock()
	defer mu.RUnlock()

	if selector == "" {
		return List(), nil
	}

	ids := strings.Split(selector, ",")
	var selected []Rule
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if r, ok := registry[id]; ok {
			selected = append(selected, r)
		} else {
			return nil, fmt.Errorf("rule not found: %s", id)
		}
	}
	return selected, nil
}
