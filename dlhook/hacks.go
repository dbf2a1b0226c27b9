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
	"sync"
)

// Hacks records which well-known runtimes the target has been detected to
// be running on. Detection happens when the target requests a probe symbol
// characteristic of the runtime. Other components consult the flags to
// adapt behaviour.
//
// Flags are raised once and never cleared.
type Hacks struct {
	crit  sync.Mutex
	flags map[string]bool
}

func newHacks() *Hacks {
	return &Hacks{
		flags: make(map[string]bool),
	}
}

func (h *Hacks) raise(flag string) {
	h.crit.Lock()
	defer h.crit.Unlock()
	h.flags[flag] = true
}

// IsSet returns true if the named runtime flag has been raised.
func (h *Hacks) IsSet(flag string) bool {
	h.crit.Lock()
	defer h.crit.Unlock()
	return h.flags[flag]
}
