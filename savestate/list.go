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

package savestate

import (
	"github.com/InfoTeddy/libTAS/curated"
)

// NumSlots is the number of user savestate slots. The automatic backtrack
// state lives in an additional slot after the user slots.
const NumSlots = 10

// sentinel error pattern returned by List.Get() for an out of range slot.
const BadSlot = "savestate: no such slot (%d)"

// List owns the savestate slots for a session. States are constructed
// lazily on first use.
type List struct {
	states    [NumSlots]*State
	backtrack *State
}

// NewList is the preferred method of initialisation for the List type.
func NewList() *List {
	return &List{}
}

// Get the state for the numbered user slot.
func (l *List) Get(slot int) (*State, error) {
	if slot < 0 || slot >= NumSlots {
		return nil, curated.Errorf(BadSlot, slot)
	}
	if l.states[slot] == nil {
		l.states[slot] = NewState(slot, false)
	}
	return l.states[slot], nil
}

// Backtrack returns the automatic backtrack state.
func (l *List) Backtrack() *State {
	if l.backtrack == nil {
		l.backtrack = NewState(NumSlots, true)
	}
	return l.backtrack
}
