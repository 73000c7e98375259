package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"

	"github.com/nf/nic/intcode"
	"github.com/nf/nic/screen"
)

// lineReader supplies lines of input to a running program.
type lineReader interface {
	Readline() (string, error)
}

// session runs one machine and routes its output either to a writer,
// one value per line, or to a screen.
type session struct {
	m   *intcode.Machine
	w   io.Writer
	in  lineReader
	scr *screen.Screen

	pending []int64 // screen output not yet forming a whole triple
	png     string
	scale   int
}

func newSession(c *runConfig, w io.Writer, in lineReader) (*session, error) {
	m, err := c.load()
	if err != nil {
		return nil, err
	}
	s := &session{m: m, w: w, in: in}
	if c.Screen.Enabled {
		s.scr = screen.New()
		s.png = c.Screen.PNG
		s.scale = c.Screen.Scale
	}
	return s, nil
}

// run executes the program described by c, writing its output to w.
// If in is not nil, lines are read from it whenever the program waits
// for input.
func run(c *runConfig, w io.Writer, in lineReader) error {
	s, err := newSession(c, w, in)
	if err != nil {
		return err
	}
	policy, err := intcode.ParseStopPolicy(c.Policy)
	if err != nil {
		return err
	}
	if in != nil {
		policy = intcode.UntilInput
	}
	return s.run(policy)
}

func (s *session) run(policy intcode.StopPolicy) error {
	for {
		halted := s.m.Run(policy)
		if err := s.flush(halted); err != nil {
			return err
		}
		if halted {
			break
		}
		if policy != intcode.UntilInput {
			continue
		}
		if s.in == nil {
			logger.Noticef("waiting for input at %d", s.m.PC)
			return errors.New("program needs more input")
		}
		vs, err := s.readInput()
		if err != nil {
			return err
		}
		s.m.PushInput(vs...)
	}
	if s.scr != nil && s.png != "" {
		if err := writePNG(s.png, s.scr, s.scale); err != nil {
			return err
		}
	}
	if err := s.m.Err(); err != nil {
		return errFaulted
	}
	return nil
}

// readInput reads lines until one holds at least one value.
func (s *session) readInput() ([]int64, error) {
	for {
		line, err := s.in.Readline()
		if err != nil {
			if err == io.EOF {
				return nil, errors.New("end of input while program waits for more")
			}
			return nil, err
		}
		vs, err := parseInts(line)
		if err != nil {
			logger.Errorf("%v", err)
			continue
		}
		if len(vs) > 0 {
			return vs, nil
		}
	}
}

// flush writes the output produced since the last flush.
func (s *session) flush(halted bool) error {
	out := s.m.PopAllOutput()
	if s.scr == nil {
		for _, v := range out {
			if _, err := fmt.Fprintln(s.w, v); err != nil {
				return err
			}
		}
		return nil
	}
	s.pending = append(s.pending, out...)
	n := len(s.pending) - len(s.pending)%3
	if halted {
		n = len(s.pending)
	}
	err := s.scr.Draw(s.pending[:n])
	s.pending = s.pending[n:]
	if err != nil {
		logger.Warningf("%v", err)
	}
	if halted || (s.in != nil && len(out) > 0) {
		return s.printScreen()
	}
	return nil
}

func (s *session) printScreen() error {
	_, err := fmt.Fprintf(s.w, "%sscore: %d\n", s.scr, s.scr.Score)
	return err
}

func writePNG(name string, s *screen.Screen, scale int) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, s.Image(scale)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
