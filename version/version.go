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

// Package version records the version number and vcs revision of the
// project build.
package version

import (
	"runtime/debug"
)

// The name to use when referring to the application.
const ApplicationName = "libTAS"

// if number is empty then the project was probably not built using the
// makefile
var number string

// Revision contains the vcs revision. If the source has been modified but
// has not been committed then the revision string will be suffixed with
// "+dirty".
var revision string

// if the version string is "unreleased" then it means that the project has
// been manually built (ie. not with the makefile). if the version string is
// "local" then there is no version number and no vcs information, which can
// happen when compiling/running with "go run ."
var version string

// Version returns the version string, the revision string and whether this
// is a numbered "release" version.
func Version() (string, string, bool) {
	return version, revision, version == number && number != ""
}

func init() {
	var vcsRevision string
	var vcsModified bool

	info, ok := debug.ReadBuildInfo()
	if ok {
		for _, v := range info.Settings {
			switch v.Key {
			case "vcs.revision":
				vcsRevision = v.Value
			case "vcs.modified":
				vcsModified = v.Value == "true"
			}
		}
	}

	if vcsRevision == "" {
		revision = "no vcs information"
	} else {
		revision = vcsRevision
		if vcsModified {
			revision = revision + "+dirty"
		}
	}

	if number != "" {
		version = number
	} else if vcsRevision == "" {
		version = "local"
	} else {
		version = "unreleased"
	}
}
