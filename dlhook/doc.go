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

// Package dlhook intercepts the target process's use of the dynamic
// loader. The Interceptor presents the target with what look like the real
// loader entry points while steering chosen symbols to interception shims,
// refusing deny-listed libraries and reacting to chosen libraries being
// loaded.
//
// The real loader is not reached directly. Its entry points are found once
// through a minimal, recursion-immune resolution primitive (the RawResolver)
// and cached for the lifetime of the Interceptor. The indirection is
// necessary because the public resolver is itself one of the intercepted
// symbols and would recurse.
//
// Entry points run on whatever thread the target calls them from. Each
// calling thread owns an Env carrying that thread's native-mode scope and
// resolver recursion depth, so one thread requesting native mode cannot
// suppress interception for another.
//
// Nothing in this package surfaces an error to the target that the real
// loader would not have produced itself: a symbol the interceptor has no
// opinion about falls through to the real resolver, and a deny-listed
// library load fails the same way an absent library would.
package dlhook
