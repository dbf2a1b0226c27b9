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

package savestate_test

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/InfoTeddy/libTAS/comms"
	"github.com/InfoTeddy/libTAS/config"
	"github.com/InfoTeddy/libTAS/curated"
	"github.com/InfoTeddy/libTAS/movie"
	"github.com/InfoTeddy/libTAS/savestate"
	"github.com/InfoTeddy/libTAS/test"
)

// harness wires a controller channel to a scripted peer standing in for the
// injected side of the harness.
type harness struct {
	ctx        *config.Context
	controller *comms.Channel
	game       *comms.Channel
	mov        *movie.Movie
}

func newHarness(t *testing.T, rec config.RecordingMode) *harness {
	t.Helper()

	p1, p2 := net.Pipe()
	t.Cleanup(func() {
		p1.Close()
		p2.Close()
	})

	ctx := &config.Context{
		GameName:     "test",
		SavestateDir: t.TempDir(),
	}
	ctx.Shared.Recording = rec

	return &harness{
		ctx:        ctx,
		controller: comms.NewChannel(p1),
		game:       comms.NewChannel(p2),
		mov:        movie.NewMovie("test"),
	}
}

// record appends one frame per supplied button mask.
func (h *harness) record(buttons ...movie.Button) {
	for _, b := range buttons {
		h.mov.AppendFrame(movie.Input{Buttons: b})
	}
}

// touchStateFiles creates empty snapshot files for the slot, standing in
// for the memory dump written by the injected side.
func (h *harness) touchStateFiles(t *testing.T, slot int) {
	t.Helper()
	base := filepath.Join(h.ctx.SavestateDir, fmt.Sprintf("test.state%d", slot))
	for _, p := range []string{base + ".pm", base + ".p"} {
		if err := os.WriteFile(p, nil, 0600); err != nil {
			t.Fatal(err)
		}
	}
}

// serveSave drives the game side of a save exchange, replying with the
// supplied result code.
func (h *harness) serveSave(code int32) {
	go func() {
		for {
			m, err := h.game.Recv()
			if err != nil {
				return
			}
			if _, ok := m.(comms.Savestate); ok {
				_ = h.game.Send(comms.SaveResult{Code: code})
				return
			}
		}
	}()
}

// serveLoad drives the game side of a load/post-load exchange.
func (h *harness) serveLoad(code int32, ft comms.FramecountTime) {
	go func() {
		for {
			m, err := h.game.Recv()
			if err != nil {
				return
			}
			switch m.(type) {
			case comms.Loadstate:
				_ = h.game.Send(comms.LoadResult{Code: code})
			case comms.Config:
				_ = h.game.Send(ft)
			case comms.Expose:
				return
			}
		}
	}()
}

// drain consumes game-side messages until the channel closes. used by tests
// that expect the load request to be refused before the trigger is sent.
func (h *harness) drain() {
	go func() {
		for {
			if _, err := h.game.Recv(); err != nil {
				return
			}
		}
	}()
}

func TestSave(t *testing.T) {
	h := newHarness(t, config.RecordingWrite)
	h.record(movie.ButtonUp, movie.ButtonUp, movie.ButtonDown, movie.ButtonDown)
	h.ctx.Framecount = 500
	h.serveSave(comms.ResultOK)

	s := savestate.NewState(2, false)
	err := s.Save(h.ctx, h.controller, h.mov)
	test.ExpectedSuccess(t, err)
	test.Equate(t, s.Framecount, uint64(500))

	// the companion movie was persisted before the save request was
	// dispatched, stamped with the frame count at save time
	saved, err := movie.Load(s.MoviePath(h.ctx))
	if !test.ExpectedSuccess(t, err) {
		return
	}
	test.Equate(t, saved.Len(), 4)
	test.Equate(t, saved.Framecount, uint64(500))
	test.ExpectedSuccess(t, movie.IsPrefix(saved, h.mov, movie.AllFrames))
}

func TestSaveFailurePassthrough(t *testing.T) {
	h := newHarness(t, config.NoRecording)
	h.ctx.Framecount = 100
	h.serveSave(5)

	s := savestate.NewState(1, false)
	err := s.Save(h.ctx, h.controller, h.mov)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, savestate.SaveFailed))

	// the cached frame count is left untouched on failure
	test.Equate(t, s.Framecount, uint64(0))
}

func TestSaveRAMBacked(t *testing.T) {
	h := newHarness(t, config.NoRecording)
	h.ctx.Shared.StateFlags |= config.StateRAM
	h.serveSave(comms.ResultOK)

	s := savestate.NewState(3, false)
	err := s.Save(h.ctx, h.controller, h.mov)
	test.ExpectedSuccess(t, err)

	// RAM-backed saves create empty placeholder files instead of sending
	// a path
	base := filepath.Join(h.ctx.SavestateDir, "test.state3")
	for _, p := range []string{base + ".pm", base + ".p"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("placeholder file %s not created", p)
		}
	}
}

func TestLoadNoState(t *testing.T) {
	h := newHarness(t, config.NoRecording)
	h.drain()

	s := savestate.NewState(4, false)
	err := s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, savestate.NoState))
}

func TestLoadNoStateWithCompatibleMovie(t *testing.T) {
	h := newHarness(t, config.RecordingWrite)
	h.record(movie.ButtonUp, movie.ButtonUp, movie.ButtonDown, movie.ButtonDown)
	h.ctx.Framecount = 4
	h.drain()

	// the slot has a companion movie but no snapshot files
	s := savestate.NewState(2, false)
	err := h.mov.Save(s.MoviePath(h.ctx), 4)
	test.ExpectedSuccess(t, err)

	// the live movie extends beyond the save point
	h.record(movie.ButtonLeft)
	h.ctx.Framecount = 5

	// never plain "no state" when the slot movie is compatible
	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, savestate.NoStateMoviePrefix))
	test.ExpectedFailure(t, curated.Is(err, savestate.NoState))
}

func TestLoadNoStateWithIncompatibleMovie(t *testing.T) {
	h := newHarness(t, config.RecordingWrite)
	h.record(movie.ButtonUp, movie.ButtonUp)
	h.ctx.Framecount = 2
	h.drain()

	s := savestate.NewState(2, false)
	err := h.mov.Save(s.MoviePath(h.ctx), 2)
	test.ExpectedSuccess(t, err)

	// rewrite history: the live movie now disagrees with the slot movie
	h.mov.SetFrame(1, movie.Input{Buttons: movie.ButtonDown})

	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, savestate.NoState))
}

func TestLoadInputMismatch(t *testing.T) {
	h := newHarness(t, config.RecordingRead)
	h.record(movie.ButtonUp, movie.ButtonDown)
	h.drain()

	s := savestate.NewState(1, false)
	h.touchStateFiles(t, 1)

	other := movie.NewMovie("test")
	other.AppendFrame(movie.Input{Buttons: movie.ButtonLeft})
	other.AppendFrame(movie.Input{Buttons: movie.ButtonRight})
	err := other.Save(s.MoviePath(h.ctx), 2)
	test.ExpectedSuccess(t, err)

	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, savestate.InputMismatch))
}

func TestLoadNoMovie(t *testing.T) {
	h := newHarness(t, config.RecordingRead)
	h.record(movie.ButtonUp)
	h.drain()

	// snapshot files exist but the companion movie does not
	s := savestate.NewState(1, false)
	h.touchStateFiles(t, 1)

	err := s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, savestate.NoMovie))
}

func TestLoadBranch(t *testing.T) {
	h := newHarness(t, config.RecordingRead)
	h.record(movie.ButtonUp, movie.ButtonDown)
	h.serveLoad(comms.ResultOK, comms.FramecountTime{Framecount: 2, Sec: 1})

	s := savestate.NewState(1, false)
	h.touchStateFiles(t, 1)

	// a slot movie that is not a prefix of the live movie
	other := movie.NewMovie("test")
	other.AppendFrame(movie.Input{Buttons: movie.ButtonLeft})
	err := other.Save(s.MoviePath(h.ctx), 1)
	test.ExpectedSuccess(t, err)

	// branch loads skip the prefix check
	err = s.Load(h.ctx, h.controller, h.mov, true)
	test.ExpectedSuccess(t, err)

	err = s.PostLoad(h.ctx, h.controller, h.mov, true)
	test.ExpectedSuccess(t, err)

	// a branch load replaces the live inputs with the slot's recording
	test.Equate(t, h.mov.Len(), 1)
	inp, _ := h.mov.Frame(0)
	test.Equate(t, uint32(inp.Buttons), uint32(movie.ButtonLeft))
}

func TestLoadPlaybackPrefixExtension(t *testing.T) {
	// the concrete consistency scenario: slot 2 saved with movie
	// [U,U,D,D]; live movie at frame 500 is [U,U,D,D,L]. loading in
	// non-branch playback succeeds because the movies agree over the
	// slot movie's whole range
	h := newHarness(t, config.RecordingRead)
	h.record(movie.ButtonUp, movie.ButtonUp, movie.ButtonDown, movie.ButtonDown)

	s := savestate.NewState(2, false)
	h.touchStateFiles(t, 2)
	err := h.mov.Save(s.MoviePath(h.ctx), 500)
	test.ExpectedSuccess(t, err)

	h.record(movie.ButtonLeft)
	h.ctx.Framecount = 500

	h.serveLoad(comms.ResultOK, comms.FramecountTime{Framecount: 500, Sec: 10})

	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)

	err = s.PostLoad(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)

	// non-branch playback loads do not reload the movie
	test.Equate(t, h.mov.Len(), 5)
	test.Equate(t, h.ctx.Framecount, uint64(500))
}

func TestRerecordCount(t *testing.T) {
	h := newHarness(t, config.RecordingWrite)
	h.record(movie.ButtonUp, movie.ButtonDown)
	h.ctx.Framecount = 2

	s := savestate.NewState(0, false)
	h.touchStateFiles(t, 0)

	h.serveSave(comms.ResultOK)
	err := s.Save(h.ctx, h.controller, h.mov)
	test.ExpectedSuccess(t, err)

	// clear the dirty flag left by the initial recording
	h.mov.ModifiedSinceLoad = false

	// a load with no modification since the previous load does not
	// increment the rerecord count
	h.serveLoad(comms.ResultOK, comms.FramecountTime{Framecount: 2, Sec: 1})
	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)
	err = s.PostLoad(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)
	test.Equate(t, h.ctx.RerecordCount, uint64(0))

	// an edit followed by a load increments the count exactly once
	h.mov.AppendFrame(movie.Input{Buttons: movie.ButtonA})

	h.serveLoad(comms.ResultOK, comms.FramecountTime{Framecount: 2, Sec: 1})
	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)
	err = s.PostLoad(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)
	test.Equate(t, h.ctx.RerecordCount, uint64(1))
	test.ExpectedFailure(t, h.mov.ModifiedSinceLoad)

	// and a further unmodified load leaves it alone
	h.serveLoad(comms.ResultOK, comms.FramecountTime{Framecount: 2, Sec: 1})
	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)
	err = s.PostLoad(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)
	test.Equate(t, h.ctx.RerecordCount, uint64(1))
}

func TestPostLoadFailurePassthrough(t *testing.T) {
	h := newHarness(t, config.RecordingWrite)
	h.record(movie.ButtonUp)
	h.ctx.Framecount = 1

	s := savestate.NewState(0, false)
	h.touchStateFiles(t, 0)

	h.serveSave(comms.ResultOK)
	err := s.Save(h.ctx, h.controller, h.mov)
	test.ExpectedSuccess(t, err)

	h.serveLoad(7, comms.FramecountTime{})
	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)
	err = s.PostLoad(h.ctx, h.controller, h.mov, false)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, savestate.LoadFailed))
}

func TestPostLoadProtocolError(t *testing.T) {
	h := newHarness(t, config.RecordingWrite)
	h.record(movie.ButtonUp)
	h.ctx.Framecount = 1

	s := savestate.NewState(0, false)
	h.touchStateFiles(t, 0)

	h.serveSave(comms.ResultOK)
	err := s.Save(h.ctx, h.controller, h.mov)
	test.ExpectedSuccess(t, err)

	// a peer that answers the config push with something other than a
	// frame/time report is a hard protocol error
	go func() {
		for {
			m, err := h.game.Recv()
			if err != nil {
				return
			}
			switch m.(type) {
			case comms.Loadstate:
				_ = h.game.Send(comms.LoadResult{Code: comms.ResultOK})
			case comms.Config:
				_ = h.game.Send(comms.SaveResult{Code: comms.ResultOK})
			case comms.Expose:
				return
			}
		}
	}()

	err = s.Load(h.ctx, h.controller, h.mov, false)
	test.ExpectedSuccess(t, err)
	err = s.PostLoad(h.ctx, h.controller, h.mov, false)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, savestate.PostLoadProtocol))
}
