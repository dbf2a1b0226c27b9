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

// Package paths resolves locations for files stored by the application:
// settings, savestates and their companion movie files.
//
// All files live under a single base directory. By default this is the
// ".libtas" directory in the user's home directory. The base directory can
// be overridden with the LIBTAS_DIR environment variable, which is useful
// for testing and for portable installations.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// the name of the base directory in the user's home directory.
const baseDir = ".libtas"

// the environment variable that overrides the default base directory.
const baseDirEnv = "LIBTAS_DIR"

// name of the sub-directory used for savestate and movie files.
const SavestateDir = "savestates"

// JoinPath prepends the supplied path with the application's base path, if
// required.
//
// The function creates all folders necessary to reach the end of sub-path.
// It does not otherwise touch or create the file.
func JoinPath(path ...string) (string, error) {
	p := filepath.Join(path...)

	b := os.Getenv(baseDirEnv)
	if b == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		b = filepath.Join(home, baseDir)
	}

	// do not prepend base path if it is already present
	if !strings.HasPrefix(p, b) {
		p = filepath.Join(b, p)
	}

	// check if path already exists
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}

	// create path if necessary
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return "", err
	}

	return p, nil
}
