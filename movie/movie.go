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

// Package movie is the store for recorded input. A movie is the ordered
// sequence of per-frame input state that, together with a deterministic
// game process, reproduces an exact execution timeline.
//
// The prefix relation between two movies underlies the determinism checks
// performed by the savestate package at load time: movie A is a prefix of
// movie B if every recorded frame of A up to A's length equals the
// corresponding frame of B.
package movie

import (
	"fmt"
)

// Button is a bitmask of pressed buttons for one frame.
type Button uint32

// List of individual Button values.
const (
	ButtonUp Button = 1 << iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonA
	ButtonB
	ButtonX
	ButtonY
	ButtonStart
	ButtonSelect
)

// Input is the recorded input state for a single frame. The struct is
// directly comparable; two frames are equal when every field is equal,
// which is the bit-for-bit equality the prefix relation requires.
type Input struct {
	Buttons     Button
	PointerX    int16
	PointerY    int16
	PointerMask uint8
}

// Movie is an ordered sequence of recorded input frames plus the
// bookkeeping that travels with it.
type Movie struct {
	// name of the game the inputs were recorded against
	GameName string

	// the total configured frame count. this can exceed the number of
	// recorded frames when the movie was saved mid-recording
	Framecount uint64

	// number of times a savestate was reloaded after the movie had been
	// edited
	RerecordCount uint64

	// whether the movie has been edited since the last state load. the
	// savestate coordinator clears this flag when it increments the
	// rerecord count
	ModifiedSinceLoad bool

	frames []Input
}

// NewMovie is the preferred method of initialisation for the Movie type.
func NewMovie(gameName string) *Movie {
	return &Movie{
		GameName: gameName,
		frames:   make([]Input, 0),
	}
}

func (m *Movie) String() string {
	return fmt.Sprintf("%s: %d frames (rerecords %d)", m.GameName, len(m.frames), m.RerecordCount)
}

// Len returns the number of recorded frames.
func (m *Movie) Len() int {
	return len(m.frames)
}

// Frame returns the input for the numbered frame. The second return value
// is false if the frame has not been recorded.
func (m *Movie) Frame(idx int) (Input, bool) {
	if idx < 0 || idx >= len(m.frames) {
		return Input{}, false
	}
	return m.frames[idx], true
}

// AppendFrame records the input for the next frame.
func (m *Movie) AppendFrame(inp Input) {
	m.frames = append(m.frames, inp)
	if uint64(len(m.frames)) > m.Framecount {
		m.Framecount = uint64(len(m.frames))
	}
	m.ModifiedSinceLoad = true
}

// SetFrame replaces the input for an already recorded frame.
func (m *Movie) SetFrame(idx int, inp Input) bool {
	if idx < 0 || idx >= len(m.frames) {
		return false
	}
	if m.frames[idx] == inp {
		return true
	}
	m.frames[idx] = inp
	m.ModifiedSinceLoad = true
	return true
}

// Truncate discards every recorded frame from the numbered frame onwards.
func (m *Movie) Truncate(idx int) {
	if idx < 0 || idx >= len(m.frames) {
		return
	}
	m.frames = m.frames[:idx]
	m.ModifiedSinceLoad = true
}

// CopyFrom replaces this movie's recorded frames with those of another
// movie. Used when reloading inputs from a savestate's companion movie
// file. The rerecord count and modified flag are left alone, they belong
// to the session and not to the file being copied from.
func (m *Movie) CopyFrom(other *Movie) {
	m.GameName = other.GameName
	m.Framecount = other.Framecount
	m.frames = make([]Input, len(other.frames))
	copy(m.frames, other.frames)
}
