// Package pipeline connects independent intcode machines, feeding the
// output of each stage into the input of the next.
//
// The machines themselves know nothing of the topology: every function
// here builds fresh machines and alternates calls to Run on them.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/nf/nic/intcode"
)

// ErrNoOutput is reported when a stage halts without producing a signal.
var ErrNoOutput = errors.New("halted without output")

// StageError records the stage at which a pipeline failed.
type StageError struct {
	Stage int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %d: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Func computes the final signal of a pipeline running program once per
// phase, with signal as the input to the first stage.
type Func func(program, phases []int64, signal int64) (int64, error)

var (
	_ Func = Series
	_ Func = Feedback
)

// stages returns one machine per phase, each with its phase setting
// already queued as its first input.
func stages(program, phases []int64) []*intcode.Machine {
	ms := make([]*intcode.Machine, len(phases))
	for i, p := range phases {
		m := intcode.New(program)
		m.Logf = intcode.Nopf // faults are reported as StageErrors
		m.PushInput(p)
		ms[i] = m
	}
	return ms
}

// Series runs one machine per phase in turn, each to completion.
// Every stage receives its phase and then the signal produced by the
// previous stage; Series returns the signal produced by the last one.
func Series(program, phases []int64, signal int64) (int64, error) {
	for i, m := range stages(program, phases) {
		m.PushInput(signal)
		m.Run(intcode.UntilHalt)
		if err := m.Err(); err != nil {
			return 0, &StageError{Stage: i, Err: err}
		}
		if !m.HasOutput() {
			return 0, &StageError{Stage: i, Err: ErrNoOutput}
		}
		signal = m.PopOutput()
	}
	return signal, nil
}

// Feedback connects the last stage back to the first and passes signals
// around the loop, one at a time, until the last stage halts. It returns
// the final signal produced by the last stage.
func Feedback(program, phases []int64, signal int64) (int64, error) {
	var (
		ms   = stages(program, phases)
		last = len(ms) - 1
		out  int64
		ok   bool
	)
	if last < 0 {
		return signal, nil
	}
	for i := 0; ; i = (i + 1) % len(ms) {
		m := ms[i]
		m.PushInput(signal)
		halted := m.Run(intcode.UntilOutput)
		if err := m.Err(); err != nil {
			return 0, &StageError{Stage: i, Err: err}
		}
		if m.HasOutput() {
			signal = m.PopOutput()
			if i == last {
				out, ok = signal, true
			}
		}
		if i == last && halted {
			break
		}
	}
	if !ok {
		return 0, &StageError{Stage: last, Err: ErrNoOutput}
	}
	return out, nil
}
