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

package dlhook_test

import (
	"fmt"
	"testing"

	"github.com/InfoTeddy/libTAS/config"
	"github.com/InfoTeddy/libTAS/dlhook"
	"github.com/InfoTeddy/libTAS/test"
)

// stubLoader plays the part of the real dynamic loader. Symbol addresses
// and their originating objects are scripted by the test.
type stubLoader struct {
	handles map[string]dlhook.Handle
	nextH   dlhook.Handle

	symbols map[string]dlhook.Symbol
	origins map[dlhook.Symbol]string

	openCalls    []string
	resolveCalls []string

	// if not nil, runs before every Resolve(). used to script re-entrant
	// resolution
	onResolve func(name string)
}

func newStubLoader() *stubLoader {
	return &stubLoader{
		handles: make(map[string]dlhook.Handle),
		nextH:   100,
		symbols: make(map[string]dlhook.Symbol),
		origins: make(map[dlhook.Symbol]string),
	}
}

func (ld *stubLoader) define(name string, addr dlhook.Symbol, origin string) {
	ld.symbols[name] = addr
	ld.origins[addr] = origin
}

func (ld *stubLoader) Open(path string, _ dlhook.Mode) (dlhook.Handle, error) {
	ld.openCalls = append(ld.openCalls, path)
	if h, ok := ld.handles[path]; ok {
		return h, nil
	}
	ld.nextH++
	ld.handles[path] = ld.nextH
	return ld.nextH, nil
}

func (ld *stubLoader) Resolve(_ dlhook.Handle, name string) (dlhook.Symbol, error) {
	ld.resolveCalls = append(ld.resolveCalls, name)
	if ld.onResolve != nil {
		ld.onResolve(name)
	}
	if addr, ok := ld.symbols[name]; ok {
		return addr, nil
	}
	return 0, fmt.Errorf("undefined symbol: %s", name)
}

func (ld *stubLoader) Origin(sym dlhook.Symbol) (string, bool) {
	path, ok := ld.origins[sym]
	return path, ok
}

// stubRaw is the bootstrap primitive. It counts its calls so tests can
// check which resolution path was taken.
type stubRaw struct {
	calls []string
}

func (r *stubRaw) RawResolve(_ dlhook.Handle, name string) dlhook.Symbol {
	r.calls = append(r.calls, name)
	switch name {
	case "dlopen":
		return 0x1000
	case "dlsym":
		return 0x1001
	}
	return 0x2000
}

const ownLibrary = "libtas.so"

type harness struct {
	raw        *stubRaw
	ld         *stubLoader
	in         *dlhook.Interceptor
	trampCalls int
}

func newHarness(t *testing.T, adjust func(*dlhook.Setup)) *harness {
	t.Helper()

	h := &harness{
		raw: &stubRaw{},
		ld:  newStubLoader(),
	}

	setup := dlhook.Setup{
		Raw: h.raw,
		Trampoline: func(open dlhook.Symbol, resolve dlhook.Symbol) (dlhook.Loader, error) {
			h.trampCalls++
			test.Equate(t, uintptr(open), 0x1000)
			test.Equate(t, uintptr(resolve), 0x1001)
			return h.ld, nil
		},
		OwnLibrary: ownLibrary,
		OwnOpen:    0x1100,
		OwnResolve: 0x1101,
		Deny:       []string{"libpulse", "ScreenSelector.so"},
		Remap: map[string]string{
			"localtime": "libc.so.6",
		},
		Probes: map[string]string{
			"mono_unity_liveness_allocate_struct": "unity",
		},
	}

	if adjust != nil {
		adjust(&setup)
	}

	var err error
	h.in, err = dlhook.NewInterceptor(setup)
	if err != nil {
		t.Fatal(err)
	}

	return h
}

func TestBadSetup(t *testing.T) {
	_, err := dlhook.NewInterceptor(dlhook.Setup{})
	test.ExpectedFailure(t, err)

	_, err = dlhook.NewInterceptor(dlhook.Setup{Raw: &stubRaw{}})
	test.ExpectedFailure(t, err)
}

func TestDenyList(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	handle, err := h.in.Open(env, "/usr/lib/libpulse-simple.so.0", dlhook.ModeLazy)
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(handle), 0)

	// the refusal must not reach the real loader or the registry
	test.Equate(t, len(h.ld.openCalls), 0)
	test.Equate(t, h.in.Registry().Len(), 0)
}

func TestOpenRegistry(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	handle, err := h.in.Open(env, "/usr/lib/libSDL2.so", dlhook.ModeLazy)
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, handle != 0)
	test.Equate(t, h.in.Registry().Len(), 1)
	test.Equate(t, h.in.Registry().Find("SDL2"), "/usr/lib/libSDL2.so")

	// a second load of the same path does not duplicate the record
	_, err = h.in.Open(env, "/usr/lib/libSDL2.so", dlhook.ModeLazy)
	test.ExpectedSuccess(t, err)
	test.Equate(t, h.in.Registry().Len(), 1)
}

func TestNativeOpen(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	env.Native(func() {
		// deny-list and registry do not apply to the harness's own loads
		handle, err := h.in.Open(env, "/usr/lib/libpulse-simple.so.0", dlhook.ModeLazy)
		test.ExpectedSuccess(t, err)
		test.ExpectedSuccess(t, handle != 0)
	})

	test.Equate(t, len(h.ld.openCalls), 1)
	test.Equate(t, h.in.Registry().Len(), 0)
}

func TestHookFamilies(t *testing.T) {
	var sdlInstalls int
	var vulkanInstalls int

	h := newHarness(t, func(setup *dlhook.Setup) {
		setup.Hooks = []dlhook.HookFamily{
			{
				Name:     "sdl",
				Patterns: []string{"libSDL2", "libSDL-1.2"},
				Install:  func() { sdlInstalls++ },
			},
			{
				Name:     "vulkan",
				Patterns: []string{"libvulkan"},
				Install:  func() { vulkanInstalls++ },
			},
		}
	})
	env := dlhook.NewEnv()

	_, err := h.in.Open(env, "/usr/lib/libSDL2.so", dlhook.ModeLazy)
	test.ExpectedSuccess(t, err)
	test.Equate(t, sdlInstalls, 1)
	test.Equate(t, vulkanInstalls, 0)

	// second match from the same family does not reinstall
	_, err = h.in.Open(env, "/usr/lib/libSDL-1.2.so.0", dlhook.ModeLazy)
	test.ExpectedSuccess(t, err)
	test.Equate(t, sdlInstalls, 1)

	// other families remain eligible
	_, err = h.in.Open(env, "/usr/lib/libvulkan.so.1", dlhook.ModeLazy)
	test.ExpectedSuccess(t, err)
	test.Equate(t, vulkanInstalls, 1)
}

func TestSelfReferentialResolution(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	addr, err := h.in.Resolve(env, dlhook.HandleDefault, "dlopen")
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(addr), 0x1100)

	addr, err = h.in.Resolve(env, dlhook.HandleDefault, "dlsym")
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(addr), 0x1101)

	// neither request touched the real resolver
	test.Equate(t, len(h.ld.resolveCalls), 0)
}

func TestBootstrapOnce(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	h.ld.define("foo", 0x3000, "/usr/lib/libtas.so")
	for i := 0; i < 3; i++ {
		_, _ = h.in.Resolve(env, dlhook.HandleDefault, "foo")
	}
	_, _ = h.in.Open(env, "/usr/lib/libSDL2.so", dlhook.ModeLazy)

	test.Equate(t, h.trampCalls, 1)

	// the bootstrap lookups are the only raw calls so far
	test.Equate(t, len(h.raw.calls), 2)
}

func TestReentrantResolution(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	h.ld.define("malloc", 0x3000, "/usr/lib/libc.so.6")

	// the full resolver itself resolves a symbol, as the real loader does
	// when lazily binding its own dependencies
	reentered := false
	h.ld.onResolve = func(name string) {
		if name == "malloc" && !reentered {
			reentered = true
			addr, err := h.in.Resolve(env, dlhook.HandleDefault, "malloc")
			test.ExpectedSuccess(t, err)
			test.ExpectedSuccess(t, addr != 0)
		}
	}

	addr, err := h.in.Resolve(env, dlhook.HandleDefault, "malloc")
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, addr != 0)
	test.ExpectedSuccess(t, reentered)

	// the inner request was served by the raw primitive, not the full
	// resolver. 2 bootstrap lookups plus 1 re-entrant lookup
	test.Equate(t, len(h.raw.calls), 3)
}

func TestArbitration(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	// a symbol the interception library shadows: the shadow address wins
	h.ld.define("SDL_Init", 0x3000, "/home/user/libtas.so")
	addr, err := h.in.Resolve(env, dlhook.HandleDefault, "SDL_Init")
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(addr), 0x3000)

	// a symbol the interception library does not shadow: the request
	// falls through to the real resolver with the caller's handle
	h.ld.define("SDL_GetTicks", 0x3001, "/usr/lib/libSDL2.so")
	addr, err = h.in.Resolve(env, dlhook.Handle(42), "SDL_GetTicks")
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(addr), 0x3001)
}

func TestFindOriginal(t *testing.T) {
	h := newHarness(t, nil)

	// arbitration is inverted for hook installers: the target's own
	// definition is wanted
	h.ld.define("SDL_Init", 0x3000, "/home/user/libtas.so")
	_, ok := h.in.FindOriginal("SDL_Init")
	test.ExpectedFailure(t, ok)

	h.ld.define("SDL_GetTicks", 0x3001, "/usr/lib/libSDL2.so")
	addr, ok := h.in.FindOriginal("SDL_GetTicks")
	test.ExpectedSuccess(t, ok)
	test.Equate(t, uintptr(addr), 0x3001)
}

func TestSymbolCache(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	h.ld.define("SDL_Init", 0x3000, "/home/user/libtas.so")

	_, err := h.in.Resolve(env, dlhook.HandleDefault, "SDL_Init")
	test.ExpectedSuccess(t, err)
	before := len(h.ld.resolveCalls)

	// a repeat request is served from the cache without consulting the
	// real resolver again
	addr, err := h.in.Resolve(env, dlhook.HandleDefault, "SDL_Init")
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(addr), 0x3000)
	test.Equate(t, len(h.ld.resolveCalls), before)
}

func TestRemap(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	h.ld.define("localtime", 0x3000, "/usr/lib/libc.so.6")

	addr, err := h.in.Resolve(env, dlhook.HandleNext, "localtime")
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(addr), 0x3000)

	// the reference library was loaded natively: no registry record
	test.Equate(t, len(h.ld.openCalls), 1)
	test.Equate(t, h.ld.openCalls[0], "libc.so.6")
	test.Equate(t, h.in.Registry().Len(), 0)
}

func TestProbeSymbols(t *testing.T) {
	h := newHarness(t, nil)
	env := dlhook.NewEnv()

	test.ExpectedFailure(t, h.in.Hacks().IsSet("unity"))

	// the probe raises the flag whether or not the symbol resolves
	_, _ = h.in.Resolve(env, dlhook.HandleDefault, "mono_unity_liveness_allocate_struct")
	test.ExpectedSuccess(t, h.in.Hacks().IsSet("unity"))
}

func TestApplySettings(t *testing.T) {
	set := config.DefaultSettings()
	set.HookLibraries = map[string][]string{
		"sdl": {"libSDL2"},
	}

	h := newHarness(t, func(setup *dlhook.Setup) {
		setup.Deny = nil
		setup.Remap = nil
		setup.Probes = nil
		setup.ApplySettings(set)
	})
	env := dlhook.NewEnv()

	// the settings deny-list applies
	handle, err := h.in.Open(env, "/usr/lib/libpulse.so.0", dlhook.ModeLazy)
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(handle), 0)

	// hook families from the settings have no Install function but still
	// match and record installation
	_, err = h.in.Open(env, "/usr/lib/libSDL2.so", dlhook.ModeLazy)
	test.ExpectedSuccess(t, err)

	// the settings probe table applies
	_, _ = h.in.Resolve(env, dlhook.HandleDefault, "mono_unity_liveness_allocate_struct")
	test.ExpectedSuccess(t, h.in.Hacks().IsSet("unity"))

	// the settings remap table applies
	h.ld.define("localtime", 0x3000, "/usr/lib/libc.so.6")
	addr, err := h.in.Resolve(env, dlhook.HandleNext, "localtime")
	test.ExpectedSuccess(t, err)
	test.Equate(t, uintptr(addr), 0x3000)
}

func TestNativeScopePanic(t *testing.T) {
	env := dlhook.NewEnv()

	func() {
		defer func() { _ = recover() }()
		env.Native(func() {
			panic("installer failure")
		})
	}()

	// the native scope unwinds even on panic
	test.ExpectedFailure(t, env.IsNative())
}
