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

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/InfoTeddy/libTAS/curated"

	"github.com/klauspost/compress/gzip"
)

// Sentinel error pattern for all file format failures.
const MovieError = "movie: %v"

// movie file header format
// ------------------------
//
// <game name>
// <frame count>
// <rerecord count>
//
// followed by one line per recorded frame. the whole file is a gzip stream.

const (
	lineGameName int = iota
	lineFramecount
	lineRerecordCount
	numHeaderLines
)

const (
	fieldButtons int = iota
	fieldPointerX
	fieldPointerY
	fieldPointerMask
	numFields
)

const fieldSep = ", "

// Suffix used by all movie files on disk.
const Suffix = ".ltm"

// Save the movie to a file, stamping the header with the supplied frame
// count. The recorded frames and the in-memory bookkeeping are not changed.
func (m *Movie) Save(path string, framecount uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return curated.Errorf(MovieError, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)

	lines := make([]string, 0, numHeaderLines+len(m.frames))
	lines = append(lines, m.GameName)
	lines = append(lines, strconv.FormatUint(framecount, 10))
	lines = append(lines, strconv.FormatUint(m.RerecordCount, 10))

	for _, inp := range m.frames {
		fields := make([]string, numFields)
		fields[fieldButtons] = strconv.FormatUint(uint64(inp.Buttons), 10)
		fields[fieldPointerX] = strconv.FormatInt(int64(inp.PointerX), 10)
		fields[fieldPointerY] = strconv.FormatInt(int64(inp.PointerY), 10)
		fields[fieldPointerMask] = strconv.FormatUint(uint64(inp.PointerMask), 10)
		lines = append(lines, strings.Join(fields, fieldSep))
	}

	transcript := strings.Join(lines, "\n") + "\n"

	n, err := io.WriteString(gz, transcript)
	if err != nil {
		return curated.Errorf(MovieError, err)
	}
	if n != len(transcript) {
		return curated.Errorf(MovieError, "output truncated")
	}

	err = gz.Close()
	if err != nil {
		return curated.Errorf(MovieError, err)
	}

	return nil
}

// Load a movie from a file previously written with Save(). The returned
// movie is freshly read from disk so the modified flag is clear.
func Load(path string) (*Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, curated.Errorf(MovieError, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, curated.Errorf(MovieError, err)
	}
	defer gz.Close()

	buffer, err := io.ReadAll(gz)
	if err != nil {
		return nil, curated.Errorf(MovieError, err)
	}

	lines := strings.Split(string(buffer), "\n")
	if len(lines) < numHeaderLines {
		return nil, curated.Errorf(MovieError, "missing header")
	}

	m := NewMovie(lines[lineGameName])

	m.Framecount, err = strconv.ParseUint(lines[lineFramecount], 10, 64)
	if err != nil {
		return nil, curated.Errorf(MovieError, fmt.Sprintf("bad frame count: %v", err))
	}

	m.RerecordCount, err = strconv.ParseUint(lines[lineRerecordCount], 10, 64)
	if err != nil {
		return nil, curated.Errorf(MovieError, fmt.Sprintf("bad rerecord count: %v", err))
	}

	for i := numHeaderLines; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}

		toks := strings.Split(lines[i], fieldSep)
		if len(toks) != numFields {
			return nil, curated.Errorf(MovieError, fmt.Sprintf("expected %d fields at line %d", numFields, i+1))
		}

		var inp Input

		buttons, err := strconv.ParseUint(toks[fieldButtons], 10, 32)
		if err != nil {
			return nil, curated.Errorf(MovieError, fmt.Sprintf("bad buttons field at line %d", i+1))
		}
		inp.Buttons = Button(buttons)

		px, err := strconv.ParseInt(toks[fieldPointerX], 10, 16)
		if err != nil {
			return nil, curated.Errorf(MovieError, fmt.Sprintf("bad pointer field at line %d", i+1))
		}
		inp.PointerX = int16(px)

		py, err := strconv.ParseInt(toks[fieldPointerY], 10, 16)
		if err != nil {
			return nil, curated.Errorf(MovieError, fmt.Sprintf("bad pointer field at line %d", i+1))
		}
		inp.PointerY = int16(py)

		mask, err := strconv.ParseUint(toks[fieldPointerMask], 10, 8)
		if err != nil {
			return nil, curated.Errorf(MovieError, fmt.Sprintf("bad pointer field at line %d", i+1))
		}
		inp.PointerMask = uint8(mask)

		m.frames = append(m.frames, inp)
	}

	// frames are appended directly rather than through AppendFrame() so the
	// configured frame count from the header is preserved
	if uint64(len(m.frames)) > m.Framecount {
		m.Framecount = uint64(len(m.frames))
	}

	return m, nil
}
