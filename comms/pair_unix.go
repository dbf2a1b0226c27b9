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

//go:build unix

package comms

import (
	"os"

	"github.com/InfoTeddy/libTAS/curated"

	"golang.org/x/sys/unix"
)

// Pair creates a connected socketpair. The first file is the controller's
// end; the second is handed to the forked game process (via ExtraFiles on
// the exec.Cmd) for the injected side to adopt.
func Pair() (*os.File, *os.File, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, curated.Errorf(ChannelError, err)
	}

	controller := os.NewFile(uintptr(fds[0]), "controller")
	game := os.NewFile(uintptr(fds[1]), "game")
	return controller, game, nil
}
