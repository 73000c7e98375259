package intcode

import "fmt"

// StopPolicy selects when Run hands control back to its caller
// before the machine halts.
type StopPolicy byte

const (
	// UntilHalt runs until the machine halts.
	UntilHalt StopPolicy = iota
	// UntilOutput returns after each OUT instruction.
	UntilOutput
	// UntilInput returns when an IN instruction finds the input queue
	// empty, leaving the instruction to be executed by the next Run.
	UntilInput
)

func (p StopPolicy) String() string {
	switch p {
	case UntilHalt:
		return "halt"
	case UntilOutput:
		return "output"
	case UntilInput:
		return "input"
	}
	return fmt.Sprintf("policy(%d)", byte(p))
}

// ParseStopPolicy returns the StopPolicy named by s, as printed by String.
func ParseStopPolicy(s string) (StopPolicy, error) {
	for _, p := range []StopPolicy{UntilHalt, UntilOutput, UntilInput} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("intcode: unknown stop policy %q", s)
}

// Event reports the outcome of executing one instruction.
type Event byte

const (
	Stepped   Event = iota // an instruction executed without output
	Output                 // an OUT instruction executed
	NeedInput              // an IN instruction is waiting for input; nothing executed
	Halted                 // the machine is halted
)

func (e Event) String() string {
	switch e {
	case Stepped:
		return "stepped"
	case Output:
		return "output"
	case NeedInput:
		return "need input"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("event(%d)", byte(e))
}

// Run executes instructions until the machine halts or the stop policy
// asks it to return, and reports whether the machine is halted.
// Run on a halted machine does nothing and returns true.
//
// Reading input from an empty queue under any policy other than
// UntilInput is a caller error: the machine halts with an
// InputUnderflow fault rather than invent a value.
func (m *Machine) Run(p StopPolicy) bool {
	for {
		switch m.Exec() {
		case Halted:
			return true
		case Output:
			if p == UntilOutput {
				return false
			}
		case NeedInput:
			if p == UntilInput {
				return false
			}
			m.fault(InputUnderflow, IN, m.PC)
			return true
		}
	}
}

// Exec executes the instruction at m.PC.
func (m *Machine) Exec() (ev Event) {
	if m.halted {
		return Halted
	}
	pc := m.PC
	if pc < 0 || pc >= len(m.Mem) {
		m.fault(EndOfMemory, 0, pc)
		return Halted
	}
	var (
		in = Instr(m.Mem[pc])
		op = in.Op()
	)
	if op == IN && len(m.in) == 0 {
		return NeedInput
	}
	defer func() {
		if e := recover(); e != nil {
			if code, ok := e.(HaltCode); ok {
				m.fault(code, op, pc)
				ev = Halted
			} else {
				panic(e)
			}
		}
	}()

	// Write targets are resolved, and memory grown to cover them,
	// before any operand is read.
	var dst int
	if k, ok := op.Writes(); ok {
		dst = m.target(in, k)
	}

	switch op {
	case ADD:
		a, b := m.param(in, 1), m.param(in, 2)
		m.Mem[dst] = a + b
	case MUL:
		a, b := m.param(in, 1), m.param(in, 2)
		m.Mem[dst] = a * b
	case IN:
		m.Mem[dst] = m.in[0]
		m.in = m.in[1:]
	case OUT:
		m.out = append(m.out, m.param(in, 1))
		m.PC += op.Width()
		return Output
	case JNZ, JZ:
		if v := m.param(in, 1); (v != 0) == (op == JNZ) {
			m.PC = m.jump(m.param(in, 2))
			return Stepped
		}
	case LT:
		a, b := m.param(in, 1), m.param(in, 2)
		m.Mem[dst] = boolWord(a < b)
	case EQ:
		a, b := m.param(in, 1), m.param(in, 2)
		m.Mem[dst] = boolWord(a == b)
	case ARB:
		m.Base += m.param(in, 1)
	case HLT:
		m.halted = true
		return Halted
	default:
		panic(BadOp)
	}
	m.PC += op.Width()
	return Stepped
}

// word returns the value at addr, growing memory as needed.
func (m *Machine) word(addr int64) int64 {
	code, ok := m.grow(int(addr))
	if !ok {
		panic(code)
	}
	return m.Mem[addr]
}

// param returns the value of the k-th parameter of the instruction at m.PC.
func (m *Machine) param(in Instr, k int) int64 {
	raw := m.word(int64(m.PC + k))
	switch in.Mode(k) {
	case Immediate:
		return raw
	case Relative:
		return m.word(m.Base + raw)
	default:
		return m.word(raw)
	}
}

// target returns the address named by the k-th parameter of the instruction
// at m.PC, which is a write destination. Immediate mode cannot name an
// address, so it is treated as position mode.
func (m *Machine) target(in Instr, k int) int {
	addr := m.word(int64(m.PC + k))
	if in.Mode(k) == Relative {
		addr += m.Base
	}
	m.word(addr)
	return int(addr)
}

func (m *Machine) jump(addr int64) int {
	if addr < 0 {
		panic(BadAddress)
	}
	return int(addr)
}

func (m *Machine) fault(code HaltCode, op Op, addr int) {
	m.halted = true
	m.err = HaltError{HaltCode: code, Op: op, Addr: addr}
	m.logf("intcode: %v", m.err)
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// HaltError records the fault that halted a Machine.
type HaltError struct {
	HaltCode
	Op   Op
	Addr int // address of the faulting instruction
}

func (e HaltError) Error() string {
	if e.HaltCode == EndOfMemory {
		return fmt.Sprintf("%s at %d", e.HaltCode, e.Addr)
	}
	return fmt.Sprintf("%s executing %s at %d", e.HaltCode, e.Op, e.Addr)
}

// HaltCode signifies the condition that halted execution.
type HaltCode byte

const (
	Halt           HaltCode = iota // HLT executed; never part of a HaltError
	BadOp                          // unknown opcode
	EndOfMemory                    // PC ran past the end of memory
	BadAddress                     // negative address or jump target
	OutOfMemory                    // address at or beyond the memory limit
	InputUnderflow                 // IN with an empty queue outside UntilInput
)

func (c HaltCode) String() string {
	if s, ok := map[HaltCode]string{
		Halt:           "halt",
		BadOp:          "invalid opcode",
		EndOfMemory:    "end of memory",
		BadAddress:     "bad address",
		OutOfMemory:    "out of memory",
		InputUnderflow: "input underflow",
	}[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown (%.2x)", byte(c))
}
