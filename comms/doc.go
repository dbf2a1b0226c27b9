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

// Package comms implements the duplex message channel between the
// controller and the injected side of the harness.
//
// Every unit on the wire is a Message: a closed set of types, one per
// message kind. Messages are framed with a four byte tag followed by a
// type-specific payload. Variable length payloads carry a four byte length
// prefix. Send() and Recv() block until the frame has been fully written or
// read; message order within one direction is preserved and messages must
// be consumed in that order.
//
// There are no timeouts. A hang on the peer blocks the corresponding
// operation indefinitely.
//
// The Pair() function creates a connected socketpair suitable for wiring a
// controller to the injected side of a forked game process.
package comms
