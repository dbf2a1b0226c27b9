// This file is part of libTAS.
//
// libTAS is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// libTAS is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with libTAS.  If not, see <https://www.gnu.org/licenses/>.

package dlhook

import (
	"strings"
	"sync"

	"github.com/InfoTeddy/libTAS/curated"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/exp/slices"
)

// number of resolved symbol addresses kept by the registry.
const symbolCacheSize = 256

// Registry is the process-wide record of dynamically loaded libraries,
// plus a cache of resolved symbol addresses.
//
// Membership means the library was successfully loaded at least once during
// the process's lifetime. Unloading is not tracked: a library that was
// unloaded and never reloaded remains listed. The registry is consulted for
// "has this component ever been present" questions, for which unloading
// does not matter.
type Registry struct {
	crit      sync.Mutex
	libraries map[string]bool
	symbols   *lru.Cache
}

// NewRegistry is the preferred method of initialisation for the Registry
// type.
func NewRegistry() (*Registry, error) {
	c, err := lru.New(symbolCacheSize)
	if err != nil {
		return nil, curated.Errorf("dlhook: %v", err)
	}

	return &Registry{
		libraries: make(map[string]bool),
		symbols:   c,
	}, nil
}

// Add a library path to the registry. Adding the same path twice has no
// effect.
func (r *Registry) Add(path string) {
	if path == "" {
		return
	}
	r.crit.Lock()
	defer r.crit.Unlock()
	r.libraries[path] = true
}

// Find the path of a recorded library containing the supplied fragment.
// Returns the empty string if no recorded library matches.
func (r *Registry) Find(fragment string) string {
	r.crit.Lock()
	defer r.crit.Unlock()
	for p := range r.libraries {
		if strings.Contains(p, fragment) {
			return p
		}
	}
	return ""
}

// Len returns the number of recorded libraries.
func (r *Registry) Len() int {
	r.crit.Lock()
	defer r.crit.Unlock()
	return len(r.libraries)
}

// Libraries returns the recorded library paths in sorted order.
func (r *Registry) Libraries() []string {
	r.crit.Lock()
	defer r.crit.Unlock()

	l := make([]string, 0, len(r.libraries))
	for p := range r.libraries {
		l = append(l, p)
	}
	slices.Sort(l)
	return l
}

func (r *Registry) cachedSymbol(name string) (Symbol, bool) {
	v, ok := r.symbols.Get(name)
	if !ok {
		return 0, false
	}
	return v.(Symbol), true
}

func (r *Registry) cacheSymbol(name string, sym Symbol) {
	r.symbols.Add(name, sym)
}
