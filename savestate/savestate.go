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

package savestate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/InfoTeddy/libTAS/comms"
	"github.com/InfoTeddy/libTAS/config"
	"github.com/InfoTeddy/libTAS/curated"
	"github.com/InfoTeddy/libTAS/logger"
	"github.com/InfoTeddy/libTAS/movie"
)

// Sentinel error patterns for every outcome of the save/load protocol.
// Compare with curated.Is().
const (
	// the slot's snapshot files do not exist on disk
	NoState = "savestate: no state in slot %d"

	// the slot's snapshot files do not exist but the slot's companion
	// movie does and the current movie is a prefix of it. the caller may
	// load the companion movie and fast-forward instead
	NoStateMoviePrefix = "savestate: no state in slot %d but a compatible movie exists"

	// the slot's companion movie cannot be loaded
	NoMovie = "savestate: no companion movie for slot %d"

	// loading refused because the current movie and the slot's recorded
	// movie disagree
	InputMismatch = "savestate: savestate inputs mismatch"

	// the peer reported a save failure. the peer's raw result code is
	// passed through as the formatting argument
	SaveFailed = "savestate: saving failed (%d)"

	// the peer reported a load failure
	LoadFailed = "savestate: loading failed (%d)"

	// an unexpected message type arrived while awaiting a save result
	ProtocolError = "savestate: unexpected message while saving (%T)"

	// an unexpected message type arrived after a load
	PostLoadProtocol = "savestate: unexpected message after loading (%T)"

	// a savestate file could not be created
	FileError = "savestate: %v"
)

// State is a single savestate slot. Path and message fields are built
// lazily on first use and cached for the lifetime of the State; the
// snapshot itself persists on disk across State instances.
type State struct {
	id int

	// an automatic "backtrack" state rather than a user slot. only affects
	// the on-screen wording
	backtrack bool

	// the frame count at which the state was last successfully saved
	Framecount uint64

	// built by buildPaths()
	path        string
	pagemapPath string
	pagesPath   string
	moviePath   string

	// built by buildMessages()
	savingMsg  string
	loadingMsg string
	loadedMsg  string
	noStateMsg string
}

// NewState is the preferred method of initialisation for the State type.
func NewState(id int, backtrack bool) *State {
	return &State{
		id:        id,
		backtrack: backtrack,
	}
}

// ID returns the slot number of the savestate.
func (s *State) ID() int {
	return s.id
}

func (s *State) String() string {
	if s.backtrack {
		return "backtrack state"
	}
	return fmt.Sprintf("state %d", s.id)
}

func (s *State) buildPaths(ctx *config.Context) {
	if s.path == "" {
		s.path = filepath.Join(ctx.SavestateDir, fmt.Sprintf("%s.state%d", ctx.GameName, s.id))
	}
	if s.pagemapPath == "" {
		s.pagemapPath = s.path + ".pm"
	}
	if s.pagesPath == "" {
		s.pagesPath = s.path + ".p"
	}
	if s.moviePath == "" {
		s.moviePath = filepath.Join(ctx.SavestateDir,
			fmt.Sprintf("%s.movie%d%s", ctx.GameName, s.id, movie.Suffix))
	}
}

func (s *State) buildMessages() {
	if s.savingMsg == "" {
		if s.backtrack {
			s.savingMsg = "Saving backtrack state"
		} else {
			s.savingMsg = fmt.Sprintf("Saving state %d", s.id)
		}
	}
	if s.loadingMsg == "" {
		if s.backtrack {
			s.loadingMsg = "Loading backtrack state"
		} else {
			s.loadingMsg = fmt.Sprintf("Loading state %d", s.id)
		}
	}
	if s.loadedMsg == "" {
		if s.backtrack {
			s.loadedMsg = "Backtrack state loaded"
		} else {
			s.loadedMsg = fmt.Sprintf("State %d loaded", s.id)
		}
	}
	if s.noStateMsg == "" {
		s.noStateMsg = fmt.Sprintf("No savestate in slot %d", s.id)
	}
}

// MoviePath returns the path of the slot's companion movie file.
func (s *State) MoviePath(ctx *config.Context) string {
	s.buildPaths(ctx)
	return s.moviePath
}

// Save snapshots the target process into this slot.
//
// If a movie is being recorded or played back it is persisted to the slot's
// companion movie file, stamped with the current frame count, before the
// save request is dispatched. A later load uses the companion movie to
// verify input consistency.
//
// On success the State's frame count is updated to the current frame count.
// On any other outcome it is left untouched.
func (s *State) Save(ctx *config.Context, ch *comms.Channel, mov *movie.Movie) error {
	s.buildPaths(ctx)
	s.buildMessages()

	if ctx.Shared.Recording != config.NoRecording {
		mov.RerecordCount = ctx.RerecordCount
		err := mov.Save(s.moviePath, ctx.Framecount)
		if err != nil {
			return err
		}
	}

	err := ch.Send(comms.SavestateIndex{Slot: int32(s.id)})
	if err != nil {
		return err
	}

	if ctx.Shared.StateFlags&config.StateRAM == config.StateRAM {
		// the snapshot content is kept in the injected side's memory.
		// empty placeholder files stand in for the snapshot on disk
		for _, p := range []string{s.pagemapPath, s.pagesPath} {
			f, err := os.Create(p)
			if err != nil {
				return curated.Errorf(FileError, err)
			}
			f.Close()
		}
	} else {
		err = ch.Send(comms.SavestatePath{Path: s.path})
		if err != nil {
			return err
		}
	}

	if ctx.Shared.OSD&config.OSDMessages == config.OSDMessages {
		err = ch.Send(comms.OSDText{Text: s.savingMsg})
		if err != nil {
			return err
		}
	}

	err = ch.Send(comms.Savestate{})
	if err != nil {
		return err
	}

	m, err := ch.Recv()
	if err != nil {
		return err
	}

	res, ok := m.(comms.SaveResult)
	if !ok {
		return curated.Errorf(ProtocolError, m)
	}
	if !res.Succeeded() {
		logger.Logf(logger.Allow, "savestate", "saving %v failed with code %d", s, res.Code)
		return curated.Errorf(SaveFailed, res.Code)
	}

	s.Framecount = ctx.Framecount
	logger.Logf(logger.Allow, "savestate", "saved %v at frame %d", s, s.Framecount)

	return nil
}

// Load restores the target process from this slot.
//
// If the slot's snapshot files are missing the load fails with the NoState
// outcome. But if a companion movie exists, a recording is underway and the
// current movie is a prefix of the companion movie at the current frame
// count, the distinguishable NoStateMoviePrefix outcome is returned instead
// so the caller can decide whether to replay forward.
//
// In playback mode, and when branch is false, the current movie must agree
// with the slot's recorded movie: loading is refused with InputMismatch
// when it does not, and with NoMovie when the slot's companion movie cannot
// be loaded at all. Branch loads skip the check so that a divergent
// timeline can be explored.
//
// A nil return means the load request has been dispatched: the caller must
// follow with PostLoad() to consume the result.
func (s *State) Load(ctx *config.Context, ch *comms.Channel, mov *movie.Movie, branch bool) error {
	s.buildPaths(ctx)
	s.buildMessages()

	err := ch.Send(comms.SavestateIndex{Slot: int32(s.id)})
	if err != nil {
		return err
	}

	if !fileExists(s.pagemapPath) || !fileExists(s.pagesPath) {
		if ctx.Shared.Recording != config.NoRecording && fileExists(s.moviePath) {
			saved, err := movie.Load(s.moviePath)
			if err == nil && movie.IsPrefix(mov, saved, ctx.Framecount) {
				logger.Logf(logger.Allow, "savestate", "no state for %v but slot movie is compatible", s)
				return curated.Errorf(NoStateMoviePrefix, s.id)
			}
		}

		if ctx.Shared.OSD&config.OSDMessages == config.OSDMessages {
			err = ch.Send(comms.OSDText{Text: s.noStateMsg})
			if err != nil {
				return err
			}
		}
		return curated.Errorf(NoState, s.id)
	}

	if ctx.Shared.StateFlags&config.StateRAM != config.StateRAM {
		err = ch.Send(comms.SavestatePath{Path: s.path})
		if err != nil {
			return err
		}
	}

	// when playing back and not branching, loading a state whose recorded
	// inputs disagree with the current movie would silently diverge from
	// the recording
	if ctx.Shared.Recording == config.RecordingRead && !branch {
		saved, err := movie.Load(s.moviePath)
		if err != nil {
			return curated.Errorf(NoMovie, s.id)
		}

		if !movie.IsPrefix(mov, saved, movie.AllFrames) {
			if ctx.Shared.OSD&config.OSDMessages == config.OSDMessages {
				err = ch.Send(comms.OSDText{Text: "Savestate inputs mismatch"})
				if err != nil {
					return err
				}
			}
			return curated.Errorf(InputMismatch)
		}
	}

	if ctx.Shared.OSD&config.OSDMessages == config.OSDMessages {
		err = ch.Send(comms.OSDText{Text: s.loadingMsg})
		if err != nil {
			return err
		}
	}

	return ch.Send(comms.Loadstate{})
}

// PostLoad completes a load operation begun with Load(). It consumes
// exactly one result message. Only if the result signals success does it:
// push the current configuration to the target; reload movie inputs from
// the slot's companion movie (only when recording or when a branch was
// requested); increment the rerecord count if the movie had unsaved edits;
// and consume the frame/time report that follows a successful restore.
//
// An expose message is always sent before returning, whatever the outcome,
// so the host can refresh its presentation.
func (s *State) PostLoad(ctx *config.Context, ch *comms.Channel, mov *movie.Movie, branch bool) error {
	m, err := ch.Recv()
	if err != nil {
		return err
	}

	// the expose message is sent on every exit path
	defer ch.Send(comms.Expose{})

	res, ok := m.(comms.LoadResult)
	if !ok {
		return curated.Errorf(PostLoadProtocol, m)
	}

	if !res.Succeeded() {
		logger.Logf(logger.Allow, "savestate", "loading %v failed with code %d", s, res.Code)
		return curated.Errorf(LoadFailed, res.Code)
	}

	// the injected side's copy of the shared configuration may be stale
	// after the memory restore
	err = ch.Send(comms.Config{Shared: ctx.Shared})
	if err != nil {
		return err
	}

	if ctx.Shared.Recording == config.RecordingWrite || branch {
		saved, err := movie.Load(s.moviePath)
		if err != nil {
			return curated.Errorf(NoMovie, s.id)
		}
		mov.CopyFrom(saved)
	}

	if mov.ModifiedSinceLoad {
		ctx.RerecordCount++
		mov.RerecordCount = ctx.RerecordCount
		mov.ModifiedSinceLoad = false
	}

	m, err = ch.Recv()
	if err != nil {
		return err
	}
	ft, ok := m.(comms.FramecountTime)
	if !ok {
		return curated.Errorf(PostLoadProtocol, m)
	}
	ctx.UpdateTime(ft.Framecount, ft.Sec, ft.Nsec)

	logger.Logf(logger.Allow, "savestate", "loaded %v, now at frame %d", s, ctx.Framecount)

	if ctx.Shared.OSD&config.OSDMessages == config.OSDMessages {
		err = ch.Send(comms.OSDText{Text: s.loadedMsg})
		if err != nil {
			return err
		}
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
