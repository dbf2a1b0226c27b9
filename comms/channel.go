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
	"encoding/binary"
	"io"
	"sync"

	"github.com/InfoTeddy/libTAS/config"
	"github.com/InfoTeddy/libTAS/curated"
)

// Sentinel error patterns returned by Send() and Recv().
const (
	// the transport failed mid-frame
	ChannelError = "comms: %v"

	// a tag arrived that does not correspond to any message kind
	UnknownMessage = "comms: unknown message tag (%d)"
)

// cap on the length prefix of variable-sized payloads. paths and OSD text
// are always far smaller than this
const maxPayload = 1 << 20

// Channel is one end of the duplex connection between the controller and
// the injected side. Both ends use the same type.
//
// Send() and Recv() are independently safe for concurrent use but the
// protocol assumes one save or load operation in flight at a time.
type Channel struct {
	sendCrit sync.Mutex
	recvCrit sync.Mutex
	rw       io.ReadWriter
}

// NewChannel wraps an established transport.
func NewChannel(rw io.ReadWriter) *Channel {
	return &Channel{rw: rw}
}

// Close the underlying transport, if it supports closing.
func (ch *Channel) Close() error {
	if c, ok := ch.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Send a message. Blocks until the frame has been fully written.
func (ch *Channel) Send(m Message) error {
	// the frame is assembled in full before writing so that a frame is
	// never left partially written between concurrent senders
	b := make([]byte, 4, 32)
	binary.LittleEndian.PutUint32(b, uint32(m.tag()))

	switch m := m.(type) {
	case SavestateIndex:
		b = binary.LittleEndian.AppendUint32(b, uint32(m.Slot))
	case SavestatePath:
		b = appendString(b, m.Path)
	case OSDText:
		b = appendString(b, m.Text)
	case Savestate, Loadstate, Expose:
		// trigger messages have no payload
	case Config:
		b = append(b, m.Shared.Encode()...)
	case SaveResult:
		b = binary.LittleEndian.AppendUint32(b, uint32(m.Code))
	case LoadResult:
		b = binary.LittleEndian.AppendUint32(b, uint32(m.Code))
	case FramecountTime:
		b = binary.LittleEndian.AppendUint64(b, m.Framecount)
		b = binary.LittleEndian.AppendUint64(b, m.Sec)
		b = binary.LittleEndian.AppendUint64(b, m.Nsec)
	}

	ch.sendCrit.Lock()
	defer ch.sendCrit.Unlock()

	n, err := ch.rw.Write(b)
	if err != nil {
		return curated.Errorf(ChannelError, err)
	}
	if n != len(b) {
		return curated.Errorf(ChannelError, "frame truncated")
	}

	return nil
}

// Recv the next message. Blocks until a full frame has been read.
func (ch *Channel) Recv() (Message, error) {
	ch.recvCrit.Lock()
	defer ch.recvCrit.Unlock()

	tag, err := ch.readUint32()
	if err != nil {
		return nil, curated.Errorf(ChannelError, err)
	}

	switch msgTag(tag) {
	case tagSavestateIndex:
		v, err := ch.readUint32()
		if err != nil {
			return nil, curated.Errorf(ChannelError, err)
		}
		return SavestateIndex{Slot: int32(v)}, nil

	case tagSavestatePath:
		s, err := ch.readString()
		if err != nil {
			return nil, curated.Errorf(ChannelError, err)
		}
		return SavestatePath{Path: s}, nil

	case tagOSDText:
		s, err := ch.readString()
		if err != nil {
			return nil, curated.Errorf(ChannelError, err)
		}
		return OSDText{Text: s}, nil

	case tagSavestate:
		return Savestate{}, nil

	case tagLoadstate:
		return Loadstate{}, nil

	case tagConfig:
		b := make([]byte, config.SharedSize)
		if _, err := io.ReadFull(ch.rw, b); err != nil {
			return nil, curated.Errorf(ChannelError, err)
		}
		sh, err := config.DecodeShared(b)
		if err != nil {
			return nil, curated.Errorf(ChannelError, err)
		}
		return Config{Shared: sh}, nil

	case tagExpose:
		return Expose{}, nil

	case tagSaveResult:
		v, err := ch.readUint32()
		if err != nil {
			return nil, curated.Errorf(ChannelError, err)
		}
		return SaveResult{Code: int32(v)}, nil

	case tagLoadResult:
		v, err := ch.readUint32()
		if err != nil {
			return nil, curated.Errorf(ChannelError, err)
		}
		return LoadResult{Code: int32(v)}, nil

	case tagFramecountTime:
		b := make([]byte, 24)
		if _, err := io.ReadFull(ch.rw, b); err != nil {
			return nil, curated.Errorf(ChannelError, err)
		}
		return FramecountTime{
			Framecount: binary.LittleEndian.Uint64(b[0:]),
			Sec:        binary.LittleEndian.Uint64(b[8:]),
			Nsec:       binary.LittleEndian.Uint64(b[16:]),
		}, nil
	}

	return nil, curated.Errorf(UnknownMessage, tag)
}

func (ch *Channel) readUint32() (uint32, error) {
	b := make([]byte, 4)
	if _, err := io.ReadFull(ch.rw, b); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (ch *Channel) readString() (string, error) {
	l, err := ch.readUint32()
	if err != nil {
		return "", err
	}
	if l > maxPayload {
		return "", curated.Errorf("payload too large (%d bytes)", l)
	}

	b := make([]byte, l)
	if _, err := io.ReadFull(ch.rw, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}
