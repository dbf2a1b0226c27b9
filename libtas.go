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

package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/InfoTeddy/libTAS/comms"
	"github.com/InfoTeddy/libTAS/config"
	"github.com/InfoTeddy/libTAS/logger"
	"github.com/InfoTeddy/libTAS/modalflag"
	"github.com/InfoTeddy/libTAS/movie"
	"github.com/InfoTeddy/libTAS/savestate"
	"github.com/InfoTeddy/libTAS/statsview"
	"github.com/InfoTeddy/libTAS/version"
)

// the file descriptor number the game side of the comms channel appears on
// in the child process, and the environment variable announcing it.
const (
	gameChannelFd  = 3
	gameChannelEnv = "LIBTAS_FD"
)

func main() {
	md := &modalflag.Modes{Output: os.Stdout}
	md.NewArgs(os.Args[1:])
	md.NewMode()
	md.AddSubModes("RUN", "MOVIE", "VERSION")

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		os.Exit(0)

	case modalflag.ParseError:
		fmt.Printf("* error: %v\n", err)
		os.Exit(10)
	}

	switch md.Mode() {
	case "RUN":
		err = run(md)

	case "MOVIE":
		err = movieInfo(md)

	case "VERSION":
		vers, rev, _ := version.Version()
		fmt.Printf("%s %s (%s)\n", version.ApplicationName, vers, rev)
	}

	if err != nil {
		fmt.Printf("* error in %s mode: %s\n", md.String(), err)
		os.Exit(20)
	}
}

func run(md *modalflag.Modes) error {
	md.NewMode()

	settingsFile := md.AddString("settings", "", "path to settings file (YAML)")
	log := md.AddBool("log", false, "echo debugging log to stdout")
	stats := md.AddBool("stats", statsview.Available(), "run the stats server")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if *log {
		logger.SetEcho(os.Stdout)
	} else {
		logger.SetEcho(nil)
	}

	if *stats && statsview.Available() {
		statsview.Launch(os.Stdout)
	}

	var set *config.Settings
	if *settingsFile != "" {
		set, err = config.LoadSettings(*settingsFile)
		if err != nil {
			return err
		}
	} else {
		set = config.DefaultSettings()
	}

	switch len(md.RemainingArgs()) {
	case 0:
		return fmt.Errorf("game executable required for %s mode", md)
	case 1:
		return supervise(set, md.GetArg(0))
	default:
		return fmt.Errorf("too many arguments for %s mode", md)
	}
}

// supervise launches the game process with one end of the comms channel and
// drives the checkpoint protocol from stdin commands.
func supervise(set *config.Settings, gamePath string) error {
	if set.GameName == "" {
		set.GameName = filepath.Base(gamePath)
	}

	ctx, err := set.Context()
	if err != nil {
		return err
	}

	ours, theirs, err := comms.Pair()
	if err != nil {
		return err
	}
	defer ours.Close()

	cmd := exec.Command(gamePath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{theirs}
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d", gameChannelEnv, gameChannelFd))

	err = cmd.Start()
	if err != nil {
		theirs.Close()
		return err
	}

	// the child holds its own copy of the descriptor
	theirs.Close()

	logger.Logf(logger.Allow, "main", "game started: %s (pid %d)", gamePath, cmd.Process.Pid)

	ch := comms.NewChannel(ours)
	err = ch.Send(comms.Config{Shared: ctx.Shared})
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return err
	}

	states := savestate.NewList()
	mov := movie.NewMovie(ctx.GameName)

	// ctrl-c detaches from the command loop and shuts the game down
	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)
	defer signal.Reset(os.Interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println("commands: save <slot>, load <slot>, backtrack, quit")

	done := false
	for !done {
		select {
		case <-intChan:
			done = true

		case line, ok := <-lines:
			if !ok || strings.ToLower(strings.TrimSpace(line)) == "quit" {
				done = true
				break // select
			}
			err = command(line, ctx, ch, states, mov)
			if err != nil {
				fmt.Printf("* %v\n", err)
			}
		}
	}

	ours.Close()
	return cmd.Wait()
}

// command interprets one line from the command loop. errors are reported to
// the user but never end the session.
func command(line string, ctx *config.Context, ch *comms.Channel,
	states *savestate.List, mov *movie.Movie) error {

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	slot := func() (int, error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%s command requires a slot number", fields[0])
		}
		return strconv.Atoi(fields[1])
	}

	switch strings.ToLower(fields[0]) {
	case "save":
		n, err := slot()
		if err != nil {
			return err
		}
		s, err := states.Get(n)
		if err != nil {
			return err
		}
		return s.Save(ctx, ch, mov)

	case "load":
		n, err := slot()
		if err != nil {
			return err
		}
		s, err := states.Get(n)
		if err != nil {
			return err
		}
		err = s.Load(ctx, ch, mov, false)
		if err != nil {
			return err
		}
		return s.PostLoad(ctx, ch, mov, false)

	case "backtrack":
		s := states.Backtrack()
		err := s.Load(ctx, ch, mov, false)
		if err != nil {
			return err
		}
		return s.PostLoad(ctx, ch, mov, false)

	default:
		return fmt.Errorf("unrecognised command: %s", fields[0])
	}
}

func movieInfo(md *modalflag.Modes) error {
	md.NewMode()

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	if len(md.RemainingArgs()) != 1 {
		return fmt.Errorf("movie file required for %s mode", md)
	}

	m, err := movie.Load(md.GetArg(0))
	if err != nil {
		return err
	}

	fmt.Printf("game: %s\n", m.GameName)
	fmt.Printf("frames: %d\n", m.Len())
	fmt.Printf("framecount at save: %d\n", m.Framecount)
	fmt.Printf("rerecords: %d\n", m.RerecordCount)

	return nil
}
