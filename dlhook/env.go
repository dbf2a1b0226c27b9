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

package dlhook

// Env is the execution environment for one thread of the target process.
// Every interception entry point takes the calling thread's Env. An Env
// must not be shared between threads: native mode and the resolver
// recursion depth are properties of a single call stack.
type Env struct {
	native       int
	resolveDepth int
}

// NewEnv is the preferred method of initialisation for the Env type.
func NewEnv() *Env {
	return &Env{}
}

// Native runs f with the environment in native mode. In native mode
// interception is bypassed and calls reach the real loader directly.
//
// The previous mode is restored on every exit path, including a panic in
// f. Native scopes nest.
func (env *Env) Native(f func()) {
	env.native++
	defer func() {
		env.native--
	}()
	f()
}

// IsNative returns true if the current code path has requested native mode.
func (env *Env) IsNative() bool {
	return env.native > 0
}

// enterResolve notes a call into the resolver, returning the depth before
// the call. a depth greater than zero means the current call is re-entrant
// and must use the minimal resolution path.
func (env *Env) enterResolve() int {
	d := env.resolveDepth
	env.resolveDepth++
	return d
}

func (env *Env) exitResolve() {
	if env.resolveDepth > 0 {
		env.resolveDepth--
	}
}
