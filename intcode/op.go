package intcode

import "fmt"

// Op represents an intcode opcode, the low two decimal digits of an
// instruction word.
type Op int64

const (
	ADD Op = 1
	MUL Op = 2
	IN  Op = 3
	OUT Op = 4
	JNZ Op = 5
	JZ  Op = 6
	LT  Op = 7
	EQ  Op = 8
	ARB Op = 9
	HLT Op = 99
)

var opStrings = map[Op]string{
	ADD: "ADD",
	MUL: "MUL",
	IN:  "IN",
	OUT: "OUT",
	JNZ: "JNZ",
	JZ:  "JZ",
	LT:  "LT",
	EQ:  "EQ",
	ARB: "ARB",
	HLT: "HLT",
}

func (o Op) String() string {
	if s, ok := opStrings[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int64(o))
}

// Valid reports whether o is a known opcode.
func (o Op) Valid() bool {
	_, ok := opStrings[o]
	return ok
}

// Params returns the number of parameters taken by the opcode.
func (o Op) Params() int {
	switch o {
	case ADD, MUL, LT, EQ:
		return 3
	case JNZ, JZ:
		return 2
	case IN, OUT, ARB:
		return 1
	}
	return 0
}

// Width returns the length of the instruction in memory words,
// including the instruction word itself.
func (o Op) Width() int { return 1 + o.Params() }

// Writes returns the 1-indexed parameter that is the destination of the
// opcode, and reports whether the opcode writes to memory at all.
func (o Op) Writes() (param int, ok bool) {
	switch o {
	case ADD, MUL, LT, EQ:
		return 3, true
	case IN:
		return 1, true
	}
	return 0, false
}

// Mode is a parameter addressing mode.
type Mode byte

const (
	Position  Mode = 0
	Immediate Mode = 1
	Relative  Mode = 2
)

func (m Mode) String() string {
	switch m {
	case Position:
		return "position"
	case Immediate:
		return "immediate"
	case Relative:
		return "relative"
	}
	return fmt.Sprintf("mode(%d)", byte(m))
}

// Instr is a whole instruction word: an opcode plus one mode digit
// per parameter.
type Instr int64

// Op returns the opcode of the instruction.
func (i Instr) Op() Op { return Op(i % 100) }

// Mode returns the addressing mode of the k-th parameter, counting from 1.
// Missing digits are zero, which is position mode.
func (i Instr) Mode(k int) Mode {
	m := int64(i) / 100
	for ; k > 1; k-- {
		m /= 10
	}
	return Mode(m % 10)
}
