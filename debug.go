package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/nic/intcode"
)

type stateKind int

const (
	pauseState stateKind = iota
	breakState
	inputState
	haltState
)

// maxContinue bounds the instructions executed by one continue command,
// so that a program in a tight loop still hands control back.
const maxContinue = 1 << 22

// stepper owns a machine under the debugger. It is not safe for
// concurrent use; the debugger drives it from a single goroutine.
type stepper struct {
	m      *intcode.Machine
	syms   symbols
	breaks map[int]symbol
	logf   func(format string, args ...any)

	// reload returns a fresh machine for the reset command.
	reload func() (*intcode.Machine, error)
}

func newStepper(m *intcode.Machine, syms symbols, logf func(string, ...any)) *stepper {
	m.Logf = logf
	return &stepper{m: m, syms: syms, breaks: map[int]symbol{}, logf: logf}
}

// swap replaces the machine, keeping breakpoints.
func (s *stepper) swap(m *intcode.Machine) {
	m.Logf = s.logf
	s.m = m
}

// step executes one instruction.
func (s *stepper) step() intcode.Event {
	ev := s.m.Exec()
	switch ev {
	case intcode.Output:
		s.logf("output: %d", s.m.PopOutput())
	case intcode.NeedInput:
		s.logf("waiting for input at %d", s.m.PC)
	}
	return ev
}

// cont executes instructions until a breakpoint is reached or the
// machine halts or waits for input.
func (s *stepper) cont() {
	for i := 0; i < maxContinue; i++ {
		switch s.step() {
		case intcode.NeedInput, intcode.Halted:
			return
		}
		if _, ok := s.breaks[s.m.PC]; ok {
			return
		}
	}
	s.logf("paused after %d instructions", maxContinue)
}

func (s *stepper) kind() stateKind {
	switch {
	case s.m.Halted():
		return haltState
	case s.atBreak():
		return breakState
	case s.waiting():
		return inputState
	}
	return pauseState
}

func (s *stepper) atBreak() bool {
	_, ok := s.breaks[s.m.PC]
	return ok
}

func (s *stepper) waiting() bool {
	if s.m.PC < 0 || s.m.PC >= len(s.m.Mem) {
		return false
	}
	return intcode.Instr(s.m.Mem[s.m.PC]).Op() == intcode.IN && s.m.InputLen() == 0
}

// command executes one debugger command line and reports whether the
// line was understood.
func (s *stepper) command(line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "s", "step":
		n := 1
		if arg != "" {
			if _, err := fmt.Sscan(arg, &n); err != nil || n < 1 {
				s.logf("invalid count %q", arg)
				return false
			}
		}
		for ; n > 0; n-- {
			if ev := s.step(); ev == intcode.NeedInput || ev == intcode.Halted {
				break
			}
		}
	case "c", "cont", "continue":
		s.cont()
	case "b", "break":
		if arg == "" {
			clear(s.breaks)
			s.logf("cleared breaks")
			return true
		}
		sym, ok := s.syms.resolve(arg)
		if !ok {
			s.logf("invalid address %q", arg)
			return false
		}
		if _, ok := s.breaks[sym.addr]; ok {
			delete(s.breaks, sym.addr)
			s.logf("cleared break %v", sym)
		} else {
			s.breaks[sym.addr] = sym
			s.logf("set break %v", sym)
		}
	case "i", "input":
		vs, err := parseInts(arg)
		if err != nil || len(vs) == 0 {
			s.logf("invalid input %q", arg)
			return false
		}
		s.m.PushInput(vs...)
	case "set":
		a, v, _ := strings.Cut(arg, "=")
		sym, ok := s.syms.resolve(strings.TrimSpace(a))
		if !ok {
			s.logf("invalid address %q", a)
			return false
		}
		var value int64
		if _, err := fmt.Sscan(v, &value); err != nil {
			s.logf("invalid value %q", v)
			return false
		}
		if err := s.m.SetMem(sym.addr, value); err != nil {
			s.logf("%v", err)
			return false
		}
	case "r", "reset":
		if s.reload == nil {
			s.logf("reset not available")
			return false
		}
		m, err := s.reload()
		if err != nil {
			s.logf("reset: %v", err)
			return false
		}
		s.swap(m)
		s.logf("reset")
	default:
		s.logf("unknown command %q", cmd)
		return false
	}
	return true
}

func (s *stepper) breakList() []symbol {
	bs := make([]symbol, 0, len(s.breaks))
	for _, b := range s.breaks {
		bs = append(bs, b)
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].addr < bs[j].addr })
	return bs
}

func stateMsg(syms symbols, m *intcode.Machine, k stateKind) string {
	var pcSym string
	if s := syms.forAddr(m.PC); len(s) > 0 {
		pcSym = s[0].label + ": "
	}
	kind := "       "
	switch k {
	case breakState:
		kind = "[break]"
	case inputState:
		kind = "[input]"
	case haltState:
		kind = "[HALT!]"
	}
	status := "running"
	if err := m.Err(); err != nil {
		status = err.Error()
	} else if m.Halted() {
		status = "halted"
	}
	return fmt.Sprintf("%6d %s %s%s\nbase: %d  input: %d queued  mem: %d words\n%s\n",
		m.PC, kind, pcSym, opMsg(m), m.Base, m.InputLen(), len(m.Mem), status)
}

// opMsg describes the word at the PC.
func opMsg(m *intcode.Machine) string {
	if m.PC < 0 || m.PC >= len(m.Mem) {
		return "-"
	}
	w := m.Mem[m.PC]
	return fmt.Sprintf("%d %v", w, intcode.Instr(w).Op())
}

// debugView is a terminal UI for stepping through a program.
type debugView struct {
	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	cmds chan string

	mu      sync.Mutex
	syms    symbols
	watches []symbol
}

func newDebugView(syms symbols) *debugView {
	d := &debugView{
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app:  tview.NewApplication(),
		cmds: make(chan string, 1),
		syms: syms,
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if cmd, arg, ok := strings.Cut(t, " "); ok {
			switch cmd {
			case "b", "break", "w", "watch", "set":
				for _, s := range d.symbols().withLabelPrefix(arg) {
					entries = append(entries, cmd+" "+s.label)
				}
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := strings.TrimSpace(d.input.GetText())
		if cmd == "" {
			return
		}
		d.input.SetText("")
		switch c, arg, _ := strings.Cut(cmd, " "); c {
		case "exit", "q", "quit":
			d.app.Stop()
			return
		case "w", "watch":
			d.setWatch(strings.TrimSpace(arg))
			cmd = "" // redraw only
		}
		select {
		case d.cmds <- cmd:
		default:
			d.logf("busy")
		}
	})
	return d
}

func (d *debugView) symbols() symbols {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syms
}

func (d *debugView) setWatch(arg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if arg == "" {
		d.watches = nil
		d.logf("cleared watches")
		return
	}
	s, ok := d.syms.resolve(arg)
	if !ok {
		d.logf("invalid address %q", arg)
		return
	}
	d.watches = append(d.watches, s)
	d.logf("watching %v", s)
}

func (d *debugView) logf(format string, args ...any) {
	fmt.Fprintf(d.log, format+"\n", args...)
}

// drive runs commands against s until the commands channel is closed.
// It is the only goroutine that touches the machine.
func (d *debugView) drive(s *stepper, reloads <-chan *intcode.Machine) {
	d.show(s)
	for {
		select {
		case cmd, ok := <-d.cmds:
			if !ok {
				return
			}
			if cmd != "" {
				s.command(cmd)
			}
		case m := <-reloads:
			s.swap(m)
			d.logf("reloaded")
		}
		d.show(s)
	}
}

func (d *debugView) show(s *stepper) {
	var (
		k     = s.kind()
		state = stateMsg(s.syms, s.m, k)
		watch = d.watchContent(s)
	)
	d.app.QueueUpdateDraw(func() {
		switch k {
		case pauseState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case breakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case inputState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case haltState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		d.state.SetText(state)
	})
}

func (d *debugView) watchContent(s *stepper) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return watchContent(s, d.watches)
}

func watchContent(s *stepper, watches []symbol) string {
	var b strings.Builder
	for _, sym := range s.breakList() {
		fmt.Fprintf(&b, "%s [%d] brk!\n", sym.label, sym.addr)
	}
	for _, w := range watches {
		v, err := s.m.Load(w.addr)
		if err != nil {
			fmt.Fprintf(&b, "%s [%d] ?\n", w.label, w.addr)
			continue
		}
		fmt.Fprintf(&b, "%s [%d] %d\n", w.label, w.addr, v)
	}
	return b.String()
}

// debug runs the debugger on the program described by c until the
// user exits. Machines received on reloads replace the current one.
func debug(c *runConfig, reloads <-chan *intcode.Machine) error {
	m, err := c.load()
	if err != nil {
		return err
	}
	syms := newSymbols(c.Labels)
	d := newDebugView(syms)
	s := newStepper(m, syms, d.logf)
	s.reload = c.load
	go d.drive(s, reloads)
	err = d.app.Run()
	close(d.cmds)
	return err
}
