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

import (
	"strings"
	"sync"

	"github.com/InfoTeddy/libTAS/curated"
	"github.com/InfoTeddy/libTAS/logger"
)

// Handle identifies a loaded shared object to the dynamic loader.
type Handle uintptr

// Special Handle values accepted by Resolve().
const (
	// resolve using the default search order
	HandleDefault Handle = 0

	// resolve using the search order after the calling object. the
	// interceptor's insertion into the search path makes this handle
	// unreliable for some symbols; see the Remap field of the Setup type
	HandleNext Handle = ^Handle(0)
)

// Symbol is the address of a resolved symbol.
type Symbol uintptr

// Mode flags for the Open() function.
type Mode int

// List of Mode values.
const (
	ModeLazy Mode = 1 << iota
	ModeNow
	ModeGlobal
	ModeNoload
)

// names of the loader entry points the interceptor shadows.
const (
	symOpen    = "dlopen"
	symResolve = "dlsym"
)

// Loader is the real dynamic loader. The injected side of the harness
// builds one over the C ABI from bootstrapped entry point addresses; tests
// supply fakes.
type Loader interface {
	// load a shared object, returning a handle to it
	Open(path string, mode Mode) (Handle, error)

	// resolve a symbol through the full loader machinery. this is the
	// entry point with side effects (error buffers, allocation) that make
	// re-entrant use unsafe
	Resolve(handle Handle, name string) (Symbol, error)

	// the path of the shared object that provides an address, as reported
	// by the loader. the second return value is false if the address is
	// not part of any loaded object
	Origin(sym Symbol) (string, bool)
}

// RawResolver is the minimal, allocation-free resolution primitive. It has
// no error checking and no side effects, which makes it immune to the
// recursion hazards of the full resolver. It is used to bootstrap the real
// loader entry points and to serve re-entrant resolver calls.
type RawResolver interface {
	RawResolve(handle Handle, name string) Symbol
}

// HookFamily describes one runtime component family: the path fragments
// that identify its libraries and the hook installation to run when one of
// them is first loaded. Installation runs exactly once per family; each
// family is independent of the others.
type HookFamily struct {
	Name     string
	Patterns []string
	Install  func()
}

// Setup collects everything an Interceptor needs. The Raw and Trampoline
// fields are required; everything else may be left at its zero value.
type Setup struct {
	// the bootstrap resolution primitive
	Raw RawResolver

	// Trampoline converts the bootstrapped entry point addresses into a
	// callable Loader
	Trampoline func(open Symbol, resolve Symbol) (Loader, error)

	// path suffix identifying the interception library itself. used to
	// arbitrate between the interceptor's and the target's definitions of
	// the same symbol
	OwnLibrary string

	// published addresses of the interception shims, returned for
	// self-referential resolution requests
	OwnOpen    Symbol
	OwnResolve Symbol

	// path fragments of libraries that must not load
	Deny []string

	// runtime component families to react to
	Hooks []HookFamily

	// symbols whose "search after me" resolution cannot be trusted,
	// mapped to the reference library to resolve them from instead
	Remap map[string]string

	// probe symbols that identify a well-known runtime, mapped to the
	// Hacks flag to raise
	Probes map[string]string
}

// sentinel error pattern returned by NewInterceptor() for an incomplete
// Setup and by the entry points when bootstrap fails.
const BadSetup = "dlhook: %v"

// Interceptor mediates all dynamic-library activity inside the target
// process. Entry points are safe for concurrent use from many threads
// provided each thread passes its own Env.
type Interceptor struct {
	raw        RawResolver
	trampoline func(open Symbol, resolve Symbol) (Loader, error)

	registry *Registry
	hacks    *Hacks

	ownLibrary string
	ownOpen    Symbol
	ownResolve Symbol

	deny   []string
	remap  map[string]string
	probes map[string]string

	hooks         []HookFamily
	hookInstalled []bool

	// guards the cached loader and the hookInstalled flags
	crit   sync.Mutex
	loader Loader
}

// NewInterceptor is the preferred method of initialisation for the
// Interceptor type.
func NewInterceptor(setup Setup) (*Interceptor, error) {
	if setup.Raw == nil {
		return nil, curated.Errorf(BadSetup, "no raw resolver")
	}
	if setup.Trampoline == nil {
		return nil, curated.Errorf(BadSetup, "no trampoline")
	}

	registry, err := NewRegistry()
	if err != nil {
		return nil, err
	}

	return &Interceptor{
		raw:           setup.Raw,
		trampoline:    setup.Trampoline,
		registry:      registry,
		hacks:         newHacks(),
		ownLibrary:    setup.OwnLibrary,
		ownOpen:       setup.OwnOpen,
		ownResolve:    setup.OwnResolve,
		deny:          setup.Deny,
		remap:         setup.Remap,
		probes:        setup.Probes,
		hooks:         setup.Hooks,
		hookInstalled: make([]bool, len(setup.Hooks)),
	}, nil
}

// Registry returns the interceptor's record of loaded libraries.
func (in *Interceptor) Registry() *Registry {
	return in.registry
}

// Hacks returns the interceptor's record of detected runtimes.
func (in *Interceptor) Hacks() *Hacks {
	return in.hacks
}

// real returns the real loader, bootstrapping its entry points through the
// raw primitive on first use. The bootstrap lookup never goes through the
// public resolver: the public resolver is the very function being
// bootstrapped.
func (in *Interceptor) real() (Loader, error) {
	in.crit.Lock()
	defer in.crit.Unlock()

	if in.loader != nil {
		return in.loader, nil
	}

	open := in.raw.RawResolve(HandleNext, symOpen)
	resolve := in.raw.RawResolve(HandleNext, symResolve)

	ld, err := in.trampoline(open, resolve)
	if err != nil {
		return nil, curated.Errorf(BadSetup, err)
	}

	in.loader = ld
	logger.Log(logger.Allow, "dlhook", "bootstrapped real loader entry points")

	return ld, nil
}

// Open presents the target with the dlopen entry point.
//
// Deny-listed paths refuse to load: the target sees a null handle and no
// error, the same result an absent library would produce. Successful loads
// are recorded in the registry and may trigger hook installation for a
// matching component family.
func (in *Interceptor) Open(env *Env, path string, mode Mode) (Handle, error) {
	ld, err := in.real()
	if err != nil {
		return 0, err
	}

	if env.IsNative() {
		return ld.Open(path, mode)
	}

	for _, frag := range in.deny {
		if frag != "" && strings.Contains(path, frag) {
			logger.Logf(logger.Allow, "dlhook", "dlopen blocked access to library %s", path)
			return 0, nil
		}
	}

	logger.Logf(logger.Allow, "dlhook", "dlopen call with file %s", path)

	h, err := ld.Open(path, mode)
	if err != nil {
		logger.Logf(logger.Allow, "dlhook", "dlopen of %s failed: %v", path, err)
		return 0, err
	}

	in.registry.Add(path)
	in.installHooks(path)

	return h, nil
}

// installHooks runs the installation for any component family matching the
// loaded path. Installation runs at most once per family.
func (in *Interceptor) installHooks(path string) {
	// the installation functions run outside the critical section. they
	// are free to call back into the interceptor
	pending := make([]*HookFamily, 0)

	in.crit.Lock()
	for i := range in.hooks {
		if in.hookInstalled[i] {
			continue
		}
		for _, frag := range in.hooks[i].Patterns {
			if strings.Contains(path, frag) {
				in.hookInstalled[i] = true
				pending = append(pending, &in.hooks[i])
				break // patterns loop
			}
		}
	}
	in.crit.Unlock()

	for _, family := range pending {
		logger.Logf(logger.Allow, "dlhook", "installing %s hooks", family.Name)
		if family.Install != nil {
			family.Install()
		}
	}
}

// Resolve presents the target with the dlsym entry point.
//
// Requests for the loader entry points themselves return the interceptor's
// published shims. Re-entrant calls (the full resolver calling functions
// that themselves resolve) are served by the raw primitive, breaking the
// recursion. Requests with the next-object handle for remapped symbols are
// resolved from their reference library. For everything else the
// interceptor's own definition wins when the default search order would
// serve it from the interception library; otherwise the request passes
// through to the real resolver.
func (in *Interceptor) Resolve(env *Env, handle Handle, name string) (Symbol, error) {
	ld, err := in.real()
	if err != nil {
		return 0, err
	}

	depth := env.enterResolve()
	defer env.exitResolve()
	safe := depth > 0

	if env.IsNative() {
		if safe {
			return in.raw.RawResolve(handle, name), nil
		}
		return ld.Resolve(handle, name)
	}

	if safe {
		logger.Logf(logger.Allow, "dlhook", "dlsym call with function %s (safe)", name)
	} else {
		logger.Logf(logger.Allow, "dlhook", "dlsym call with function %s", name)
	}

	// self-referential requests must not recurse into resolution
	switch name {
	case symOpen:
		return in.ownOpen, nil
	case symResolve:
		return in.ownResolve, nil
	}

	// a re-entrant call. the minimal primitive avoids the work that
	// caused the recursion in the first place
	if safe {
		return in.raw.RawResolve(handle, name), nil
	}

	if handle == HandleNext {
		if ref, ok := in.remap[name]; ok {
			// search order after the interception library cannot be
			// trusted for this symbol. resolve it from an explicitly
			// loaded reference library instead
			var refHandle Handle
			var refErr error
			env.Native(func() {
				refHandle, refErr = in.Open(env, ref, ModeLazy)
			})
			if refErr == nil && refHandle != 0 {
				return ld.Resolve(refHandle, name)
			}
			logger.Logf(logger.Allow, "dlhook", "cannot load reference library %s for %s", ref, name)
		} else {
			logger.Logf(logger.Allow, "dlhook", "dlsym called with next-object handle for symbol %s", name)
		}
	}

	if flag, ok := in.probes[name]; ok {
		in.hacks.raise(flag)
		logger.Logf(logger.Allow, "dlhook", "probe symbol %s raised runtime flag %s", name, flag)
	}

	addr, ok := in.findSym(ld, name, false)
	if !ok {
		// no opinion. fall through to the real resolver
		return ld.Resolve(handle, name)
	}

	return addr, nil
}

// findSym resolves a symbol by the default search order and arbitrates on
// its origin. With original false the interceptor's own definition is
// wanted: an address served from any other object is discarded. With
// original true the relationship is inverted, discarding addresses served
// from the interception library.
func (in *Interceptor) findSym(ld Loader, name string, original bool) (Symbol, bool) {
	if !original {
		if s, ok := in.registry.cachedSymbol(name); ok {
			return s, true
		}
	}

	addr, err := ld.Resolve(HandleDefault, name)
	if err != nil || addr == 0 {
		return 0, false
	}

	if path, ok := ld.Origin(addr); ok {
		fromOwn := in.ownLibrary != "" && strings.HasSuffix(path, in.ownLibrary)
		if original == fromOwn {
			return 0, false
		}
	}

	if !original {
		in.registry.cacheSymbol(name, addr)
	}

	return addr, true
}

// FindOriginal resolves a symbol to the target's (or a system library's)
// own definition, skipping the interception library. Hook installers use
// this to find the functions they wrap.
func (in *Interceptor) FindOriginal(name string) (Symbol, bool) {
	ld, err := in.real()
	if err != nil {
		return 0, false
	}
	return in.findSym(ld, name, true)
}
