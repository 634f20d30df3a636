// Package registry loads the symbol name/id mapping and the subscribe list
// that together determine which slots this writer is allowed to publish
// into.
package registry

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Registry is a read-only mapping from uppercase symbol name to dense
// symbol id, built once at startup and never mutated afterward.
type Registry struct {
	byName map[string]int
	maxID  int
}

// NSymbols is the header's n_symbols value this registry implies: the
// largest id seen, plus one.
func (r *Registry) NSymbols() int { return r.maxID + 1 }

// Lookup returns the dense id for an uppercase symbol name.
func (r *Registry) Lookup(name string) (int, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Load reads the TSV registry file and the newline-separated subscribe
// list, validates them against each other, and returns the resulting
// Registry along with the subscribed symbol names in file order.
//
// Every validation failure below is fatal: an unknown subscribe-list
// entry, a duplicate id, or a duplicate name. The returned errors do not
// distinguish these cases by type; the writer's main exits(20) on any
// Load error.
func Load(registryPath, subscribePath string) (*Registry, []string, error) {
	byName, maxID, err := loadRegistryFile(registryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: %w", err)
	}

	subs, err := loadSubscribeFile(subscribePath)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: %w", err)
	}

	for _, name := range subs {
		if _, ok := byName[name]; !ok {
			return nil, nil, fmt.Errorf("registry: subscribe-list entry %q not found in registry", name)
		}
	}

	return &Registry{byName: byName, maxID: maxID}, subs, nil
}

func loadRegistryFile(path string) (map[string]int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	byName := make(map[string]int)
	byID := make(map[int]string)
	maxID := -1

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, 0, fmt.Errorf("%s:%d: malformed line %q", path, lineNo, line)
		}
		id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || id < 0 {
			return nil, 0, fmt.Errorf("%s:%d: invalid id %q", path, lineNo, parts[0])
		}
		name := strings.TrimSpace(parts[1])
		if name == "" {
			return nil, 0, fmt.Errorf("%s:%d: empty symbol name", path, lineNo)
		}
		if prev, ok := byID[id]; ok {
			return nil, 0, fmt.Errorf("%s:%d: duplicate id %d (already %q)", path, lineNo, id, prev)
		}
		if _, ok := byName[name]; ok {
			return nil, 0, fmt.Errorf("%s:%d: duplicate symbol %q", path, lineNo, name)
		}
		byID[id] = name
		byName[name] = id
		if id > maxID {
			maxID = id
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	if maxID < 0 {
		return nil, 0, fmt.Errorf("%s: no entries", path)
	}
	return byName, maxID, nil
}

func loadSubscribeFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var subs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		subs = append(subs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}
