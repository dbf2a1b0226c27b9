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

package comms

import (
	"fmt"

	"github.com/InfoTeddy/libTAS/config"
)

// tags identifying each message kind on the wire.
type msgTag uint32

const (
	tagSavestateIndex msgTag = iota + 1
	tagSavestatePath
	tagOSDText
	tagSavestate
	tagLoadstate
	tagConfig
	tagExpose
	tagSaveResult
	tagLoadResult
	tagFramecountTime
)

// Message is implemented by every unit that can travel over a Channel. The
// set of implementations is closed: the tag() function is unexported so no
// new message kinds can be defined outside this package.
type Message interface {
	tag() msgTag
}

// SavestateIndex selects the savestate slot for a following Savestate or
// Loadstate trigger. Controller to game.
type SavestateIndex struct {
	Slot int32
}

// SavestatePath tells the injected side where the snapshot files for the
// selected slot live on disk. Controller to game. Not sent when savestates
// are RAM-backed.
type SavestatePath struct {
	Path string
}

// OSDText is a human-readable message for the game's on-screen display.
// Controller to game.
type OSDText struct {
	Text string
}

// Savestate triggers a state save. Controller to game. No payload.
type Savestate struct{}

// Loadstate triggers a state restore. Controller to game. No payload.
type Loadstate struct{}

// Config pushes the controller's copy of the shared configuration to the
// injected side. Controller to game.
type Config struct {
	Shared config.Shared
}

// Expose asks the injected side to redraw its presentation. Controller to
// game. No payload.
type Expose struct{}

// SaveResult reports the outcome of a Savestate trigger. Game to
// controller. A Code of ResultOK means the save succeeded; any other value
// is the peer's own failure code, passed through unmodified.
type SaveResult struct {
	Code int32
}

// LoadResult reports the outcome of a Loadstate trigger. Game to
// controller.
type LoadResult struct {
	Code int32
}

// FramecountTime reports the injected side's frame counter and wall-clock
// time. Game to controller. Sent unprompted after every frame boundary and
// after every state restore.
type FramecountTime struct {
	Framecount uint64
	Sec        uint64
	Nsec       uint64
}

// ResultOK is the result code reported by the peer when a save or load
// succeeded.
const ResultOK int32 = 0

// Succeeded is true if the peer reported a successful save.
func (m SaveResult) Succeeded() bool {
	return m.Code == ResultOK
}

// Succeeded is true if the peer reported a successful load.
func (m LoadResult) Succeeded() bool {
	return m.Code == ResultOK
}

func (SavestateIndex) tag() msgTag { return tagSavestateIndex }
func (SavestatePath) tag() msgTag  { return tagSavestatePath }
func (OSDText) tag() msgTag        { return tagOSDText }
func (Savestate) tag() msgTag      { return tagSavestate }
func (Loadstate) tag() msgTag      { return tagLoadstate }
func (Config) tag() msgTag         { return tagConfig }
func (Expose) tag() msgTag         { return tagExpose }
func (SaveResult) tag() msgTag     { return tagSaveResult }
func (LoadResult) tag() msgTag     { return tagLoadResult }
func (FramecountTime) tag() msgTag { return tagFramecountTime }

func (m SavestateIndex) String() string {
	return fmt.Sprintf("savestate index %d", m.Slot)
}

func (m FramecountTime) String() string {
	return fmt.Sprintf("frame %d at %d.%09ds", m.Framecount, m.Sec, m.Nsec)
}
