// Package intcode provides an implementation of an intcode computer,
// called Machine, that executes intcode programs.
//
// A Machine is not safe for concurrent use. Programs that need several
// machines, such as amplifier chains or search over alternative inputs,
// create independent machines (or Clone an existing one) and alternate
// calls to Run themselves.
package intcode

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// DefaultMemLimit is the maximum number of memory words a Machine may grow
// to when its MemLimit is zero.
const DefaultMemLimit = 1 << 24

// Machine is an intcode computer.
type Machine struct {
	Mem  []int64
	PC   int
	Base int64 // relative base

	// MemLimit bounds memory growth. Zero means DefaultMemLimit.
	MemLimit int

	// Logf receives reports of anomalies that halt the machine.
	// If nil, log.Printf is used.
	Logf func(format string, args ...any)

	in, out []int64
	halted  bool
	err     error
}

// Nopf is a Logf that discards its input.
func Nopf(string, ...any) {}

// New returns a Machine whose memory is a copy of program.
func New(program []int64) *Machine {
	m := &Machine{Mem: make([]int64, len(program))}
	copy(m.Mem, program)
	return m
}

// ParseError is returned by Parse when a program token is not
// a base-10 signed integer.
type ParseError struct {
	Index int // token position, from 0
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("intcode: bad token %d %q: %v", e.Index, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse returns a Machine loaded with the comma-separated program text.
// Whitespace around each token is ignored, as are empty tokens such as
// those left by a trailing comma or newline.
func Parse(text string) (*Machine, error) {
	prog, err := ParseProgram(text)
	if err != nil {
		return nil, err
	}
	return &Machine{Mem: prog}, nil
}

// ParseProgram parses comma-separated program text into memory words.
func ParseProgram(text string) ([]int64, error) {
	var prog []int64
	for i, tok := range strings.Split(text, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, &ParseError{Index: i, Token: tok, Err: err}
		}
		prog = append(prog, v)
	}
	return prog, nil
}

// Clone returns a deep copy of m that shares no state with it.
func (m *Machine) Clone() *Machine {
	c := *m
	c.Mem = append([]int64(nil), m.Mem...)
	c.in = append([]int64(nil), m.in...)
	c.out = append([]int64(nil), m.out...)
	return &c
}

// PushInput appends values to the back of the input queue.
func (m *Machine) PushInput(v ...int64) { m.in = append(m.in, v...) }

// InputLen returns the number of queued input values.
func (m *Machine) InputLen() int { return len(m.in) }

// HasOutput reports whether the output queue is non-empty.
func (m *Machine) HasOutput() bool { return len(m.out) > 0 }

// PopOutput removes and returns the oldest output value.
// It panics if there is no output; check HasOutput first.
func (m *Machine) PopOutput() int64 {
	if len(m.out) == 0 {
		panic("intcode: PopOutput on empty output queue")
	}
	v := m.out[0]
	m.out = m.out[1:]
	return v
}

// PopAllOutput drains the output queue, returning its values in the order
// they were produced.
func (m *Machine) PopAllOutput() []int64 {
	out := make([]int64, len(m.out))
	copy(out, m.out)
	m.out = m.out[:0]
	return out
}

// Output returns a copy of the output queue without draining it.
func (m *Machine) Output() []int64 { return append([]int64(nil), m.out...) }

// Halted reports whether the machine has stopped for good, either by
// executing HLT or because of a fault.
func (m *Machine) Halted() bool { return m.halted }

// Err returns the HaltError that halted the machine, or nil if the
// machine is running or halted normally.
func (m *Machine) Err() error { return m.err }

// SetMem stores v at addr, growing memory if needed.
// It is typically used to patch a program before it is run.
func (m *Machine) SetMem(addr int, v int64) error {
	if code, ok := m.grow(addr); !ok {
		return fmt.Errorf("intcode: %v storing to %d", code, addr)
	}
	m.Mem[addr] = v
	return nil
}

// Load returns the value at addr, growing memory if needed.
func (m *Machine) Load(addr int) (int64, error) {
	if code, ok := m.grow(addr); !ok {
		return 0, fmt.Errorf("intcode: %v loading from %d", code, addr)
	}
	return m.Mem[addr], nil
}

func (m *Machine) memLimit() int {
	if m.MemLimit > 0 {
		return m.MemLimit
	}
	return DefaultMemLimit
}

// grow zero-fills memory up to and including addr. If addr cannot be
// addressed it reports false and the reason.
func (m *Machine) grow(addr int) (HaltCode, bool) {
	switch {
	case addr < 0:
		return BadAddress, false
	case addr < len(m.Mem):
		return Halt, true
	case addr >= m.memLimit():
		return OutOfMemory, false
	}
	if addr < cap(m.Mem) {
		n := len(m.Mem)
		m.Mem = m.Mem[:addr+1]
		clear(m.Mem[n:])
		return Halt, true
	}
	mem := make([]int64, addr+1, max(addr+1, 2*cap(m.Mem)))
	copy(mem, m.Mem)
	m.Mem = mem
	return Halt, true
}

func (m *Machine) logf(format string, args ...any) {
	if m.Logf != nil {
		m.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
