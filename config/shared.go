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

package config

import (
	"encoding/binary"

	"github.com/InfoTeddy/libTAS/curated"
)

// RecordingMode indicates what the controller is doing with the input
// sequence of the current session.
type RecordingMode int32

// List of valid RecordingMode values.
const (
	// inputs pass through to the game and are not recorded
	NoRecording RecordingMode = iota

	// inputs are being recorded into the working movie
	RecordingWrite

	// inputs are being replayed from the working movie
	RecordingRead
)

func (m RecordingMode) String() string {
	switch m {
	case NoRecording:
		return "no recording"
	case RecordingWrite:
		return "recording"
	case RecordingRead:
		return "playback"
	}
	return "unknown"
}

// Savestate settings flags for the StateFlags field of the Shared type.
const (
	// savestates are stored in RAM by the injected side. the controller
	// creates empty placeholder files on disk instead of sending a path
	StateRAM uint32 = 1 << iota

	// incremental savestates using soft-dirty page tracking
	StateIncremental
)

// On-screen-display flags for the OSD field of the Shared type.
const (
	OSDFramecount uint32 = 1 << iota
	OSDInputs
	OSDMessages
)

// Shared is the portion of the configuration that is mirrored by the
// injected side of the harness. After a memory restore the injected side may
// hold a stale copy so the controller pushes the whole struct over the
// message channel.
//
// Shared has a fixed wire size. Fields must not be added without updating
// the encoding functions and SharedSize.
type Shared struct {
	Recording       RecordingMode
	StateFlags      uint32
	OSD             uint32
	MovieFramecount uint64
	InitialTimeSec  uint64
	InitialTimeNsec uint64
}

// SharedSize is the number of bytes in the encoded form of the Shared type.
const SharedSize = 36

// Encode the Shared struct to its fixed-size wire form.
func (sh Shared) Encode() []byte {
	b := make([]byte, SharedSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(sh.Recording))
	binary.LittleEndian.PutUint32(b[4:], sh.StateFlags)
	binary.LittleEndian.PutUint32(b[8:], sh.OSD)
	binary.LittleEndian.PutUint64(b[12:], sh.MovieFramecount)
	binary.LittleEndian.PutUint64(b[20:], sh.InitialTimeSec)
	binary.LittleEndian.PutUint64(b[28:], sh.InitialTimeNsec)
	return b
}

// DecodeShared converts the fixed-size wire form back into a Shared struct.
func DecodeShared(b []byte) (Shared, error) {
	if len(b) != SharedSize {
		return Shared{}, curated.Errorf("config: wrong size for shared config (%d bytes)", len(b))
	}

	sh := Shared{
		Recording:       RecordingMode(binary.LittleEndian.Uint32(b[0:])),
		StateFlags:      binary.LittleEndian.Uint32(b[4:]),
		OSD:             binary.LittleEndian.Uint32(b[8:]),
		MovieFramecount: binary.LittleEndian.Uint64(b[12:]),
		InitialTimeSec:  binary.LittleEndian.Uint64(b[20:]),
		InitialTimeNsec: binary.LittleEndian.Uint64(b[28:]),
	}
	return sh, nil
}
