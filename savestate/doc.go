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

// Package savestate coordinates the snapshotting and restoring of the
// target process over the message channel.
//
// A savestate is identified by a small slot number. On disk a slot is a
// descriptor path plus a page-map file (.pm suffix) and a page-data file
// (.p suffix), with an optional companion movie file capturing the exact
// input history up to the save point. The content of the snapshot files is
// produced by the injected side; this package only drives the protocol
// around them.
//
// The consistency rules enforced at load time are what keep a restore from
// producing inputs inconsistent with the movie being recorded or played
// back. In playback mode a load is refused unless the current movie and the
// slot's recorded movie agree on their common frame range. A branch load
// skips the check and permits divergent timelines.
//
// All outcomes are returned as curated errors with the sentinel patterns
// defined in this package. Nothing here panics and nothing is retried.
package savestate
