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
	"github.com/InfoTeddy/libTAS/config"

	"golang.org/x/exp/slices"
)

// ApplySettings fills the pattern tables of the Setup from the controller's
// settings: the deny-list, the hook-family patterns, the remap table and
// the probe symbols. The resolution primitives, shim addresses and hook
// installation functions are not configuration and must be supplied by the
// caller.
//
// Hook families named by the settings are added without an installation
// function; the caller attaches Install functions by family name after
// this call.
func (setup *Setup) ApplySettings(set *config.Settings) {
	setup.Deny = append(setup.Deny, set.DenyLibraries...)

	// map iteration order is not stable. families are added in name order
	// so that repeated runs probe in the same order
	names := make([]string, 0, len(set.HookLibraries))
	for name := range set.HookLibraries {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		setup.Hooks = append(setup.Hooks, HookFamily{
			Name:     name,
			Patterns: set.HookLibraries[name],
		})
	}

	if setup.Remap == nil {
		setup.Remap = make(map[string]string)
	}
	for sym, ref := range set.RemapSymbols {
		setup.Remap[sym] = ref
	}

	if setup.Probes == nil {
		setup.Probes = make(map[string]string)
	}
	for sym, flag := range set.ProbeSymbols {
		setup.Probes[sym] = flag
	}
}
