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

package movie

// AllFrames can be used as the bound argument to IsPrefix() to compare the
// whole common range of two movies.
const AllFrames = ^uint64(0)

// IsPrefix compares the recorded inputs of movie a against movie b, up to
// the frame bound. The movies agree if every frame in the range
//
//	[0, min(bound, a.Len(), b.Len()))
//
// is equal in both movies. An empty movie is a prefix of anything. The
// comparison stops at the first mismatching frame.
//
// Note that because the comparison range is capped by the length of both
// movies, IsPrefix(a, b, n) == IsPrefix(b, a, n). The function answers
// whether the shorter movie is a prefix of the longer over the bounded
// range.
func IsPrefix(a *Movie, b *Movie, bound uint64) bool {
	n := len(a.frames)
	if len(b.frames) < n {
		n = len(b.frames)
	}
	if bound < uint64(n) {
		n = int(bound)
	}

	for i := 0; i < n; i++ {
		if a.frames[i] != b.frames[i] {
			return false
		}
	}

	return true
}
