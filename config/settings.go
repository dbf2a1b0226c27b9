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

package config

import (
	"os"
	"path/filepath"

	"github.com/InfoTeddy/libTAS/curated"
	"github.com/InfoTeddy/libTAS/paths"

	"gopkg.in/yaml.v3"
)

// sentinel error pattern returned when a settings file cannot be read or
// parsed.
const BadSettings = "config: %v"

// Settings is the on-disk form of the controller's configuration.
type Settings struct {
	GameName     string `yaml:"game"`
	SavestateDir string `yaml:"savestate-dir,omitempty"`

	// one of "none", "write" or "read"
	Recording string `yaml:"recording"`

	RAMStates   bool `yaml:"ram-savestates"`
	OSDMessages bool `yaml:"osd-messages"`

	// path fragments of libraries the injected side will refuse to load
	DenyLibraries []string `yaml:"deny-libraries"`

	// path fragments that identify runtime component families and trigger
	// hook installation when a matching library is loaded
	HookLibraries map[string][]string `yaml:"hook-libraries"`

	// symbols whose search-order resolution cannot be trusted, mapped to
	// the reference library they should be resolved from instead
	RemapSymbols map[string]string `yaml:"remap-symbols"`

	// probe symbols that identify a well-known runtime when the game
	// requests them, mapped to the flag name to raise
	ProbeSymbols map[string]string `yaml:"probe-symbols"`
}

// DefaultSettings returns a Settings instance with the values a fresh
// installation would use.
func DefaultSettings() *Settings {
	return &Settings{
		Recording:   "none",
		OSDMessages: true,
		DenyLibraries: []string{
			"libpulse",
			"ScreenSelector.so",
		},
		RemapSymbols: map[string]string{
			"localtime":     "libc.so.6",
			"localtime64":   "libc.so.6",
			"localtime_r":   "libc.so.6",
			"localtime64_r": "libc.so.6",
		},
		ProbeSymbols: map[string]string{
			"mono_unity_liveness_allocate_struct": "unity",
		},
	}
}

// LoadSettings reads a Settings instance from a YAML file.
func LoadSettings(path string) (*Settings, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, curated.Errorf(BadSettings, err)
	}

	set := DefaultSettings()
	err = yaml.Unmarshal(d, set)
	if err != nil {
		return nil, curated.Errorf(BadSettings, err)
	}

	return set, nil
}

// Save writes the Settings instance to a YAML file.
func (set *Settings) Save(path string) error {
	d, err := yaml.Marshal(set)
	if err != nil {
		return curated.Errorf(BadSettings, err)
	}

	err = os.WriteFile(path, d, 0600)
	if err != nil {
		return curated.Errorf(BadSettings, err)
	}

	return nil
}

// Context creates a session Context from the Settings instance. The
// savestate directory is created if it does not yet exist.
func (set *Settings) Context() (*Context, error) {
	ctx := &Context{
		GameName: set.GameName,
	}

	if ctx.GameName == "" {
		return nil, curated.Errorf(BadSettings, "no game name")
	}

	ctx.SavestateDir = set.SavestateDir
	if ctx.SavestateDir == "" {
		// JoinPath creates the directories leading to the supplied file so
		// the game name is passed as the final path element and then
		// stripped. savestate files use the game name as a filename prefix,
		// not as a sub-directory
		p, err := paths.JoinPath(paths.SavestateDir, ctx.GameName)
		if err != nil {
			return nil, curated.Errorf(BadSettings, err)
		}
		ctx.SavestateDir = filepath.Dir(p)
	}

	switch set.Recording {
	case "none", "":
		ctx.Shared.Recording = NoRecording
	case "write":
		ctx.Shared.Recording = RecordingWrite
	case "read":
		ctx.Shared.Recording = RecordingRead
	default:
		return nil, curated.Errorf(BadSettings, "unrecognised recording mode")
	}

	if set.RAMStates {
		ctx.Shared.StateFlags |= StateRAM
	}
	if set.OSDMessages {
		ctx.Shared.OSD |= OSDMessages
	}

	return ctx, nil
}
