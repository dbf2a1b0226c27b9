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

// Package config gathers the session state shared between the controller's
// sub-systems: the name of the game being driven, where savestates live on
// disk, the frame counter and wall-clock time reported by the injected side,
// and the rerecord count.
//
// The Shared type is the sub-set of configuration that the injected side of
// the harness also keeps a copy of. It has a fixed-size binary form so that
// it can be pushed over the message channel after a memory restore.
//
// The Settings type is the on-disk YAML form of the controller's
// configuration, including the library deny-list and the symbol pattern
// tables used by the dlhook package.
package config

const nsecInSec = 1000000000

// Context is the controller's view of the running session. It is handed to
// the savestate coordinator which updates the frame counter, clock and
// rerecord count as states are saved and restored.
type Context struct {
	// name of the game being run. used to derive savestate and movie file
	// names
	GameName string

	// directory in which savestate and movie files are stored
	SavestateDir string

	// the frame counter and wall-clock time last reported by the injected
	// side
	Framecount      uint64
	CurrentTimeSec  uint64
	CurrentTimeNsec uint64

	// elapsed movie time. only meaningful when recording
	MovieTimeSec  uint64
	MovieTimeNsec uint64

	// number of times a savestate was loaded after the movie had been
	// edited
	RerecordCount uint64

	// the configuration mirrored by the injected side
	Shared Shared
}

// UpdateTime records a frame/time report from the injected side. When
// recording, the configured movie length and the elapsed movie time are
// recalculated from the new values.
func (ctx *Context) UpdateTime(framecount uint64, sec uint64, nsec uint64) {
	ctx.Framecount = framecount
	ctx.CurrentTimeSec = sec
	ctx.CurrentTimeNsec = nsec

	if ctx.Shared.Recording == RecordingWrite {
		ctx.Shared.MovieFramecount = framecount

		ctx.MovieTimeSec = sec - ctx.Shared.InitialTimeSec
		if nsec < ctx.Shared.InitialTimeNsec {
			ctx.MovieTimeNsec = nsec + nsecInSec - ctx.Shared.InitialTimeNsec
			ctx.MovieTimeSec--
		} else {
			ctx.MovieTimeNsec = nsec - ctx.Shared.InitialTimeNsec
		}
	}
}
