// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/beevik/go9900/object"
)

// Maximum number of nested include files and macro expansions.
const maxSourceDepth = 100

// A source frame is an include file or an expanding macro. Frames higher
// on the stack suspend the frames below them until they run out of lines.
type frame struct {
	fileIndex int
	lines     []string
	next      int    // index of the next line
	macro     string // name of the expanding macro, if any
	row       int    // calling line of a macro frame
}

type sourceStack struct {
	frames []*frame
}

// Read all lines of a source file, the way a bufio.Scanner splits them.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func (s *sourceStack) depth() int {
	return len(s.frames)
}

func (s *sourceStack) push(f *frame) error {
	if len(s.frames) >= maxSourceDepth {
		return errSourceDepth
	}
	s.frames = append(s.frames, f)
	return nil
}

// Return the next source line along with the frame that supplied it.
// Exhausted frames are popped and the frame below resumes.
func (s *sourceStack) next() (string, *frame, bool) {
	for len(s.frames) > 0 {
		f := s.frames[len(s.frames)-1]
		if f.next < len(f.lines) {
			line := f.lines[f.next]
			f.next++
			return line, f, true
		}
		s.frames = s.frames[:len(s.frames)-1]
	}
	return "", nil, false
}

// Return the 1-based line number of the line most recently returned by a
// frame. Lines of a macro frame carry the line number of the call.
func (f *frame) line() int {
	if f.macro != "" {
		return f.row
	}
	return f.next
}

// Stop reading any further source.
func (s *sourceStack) clear() {
	s.frames = s.frames[:0]
}

// Find an include file. Relative names are searched next to the including
// file first, then along the include paths.
func findFile(name, including string, paths []string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dirs := append([]string{filepath.Dir(including)}, paths...)
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", object.Errorf(object.ErrIO, "File not found: %s", name)
}
