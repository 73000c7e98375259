package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Permutations returns every ordering of xs, generated with Heap's
// algorithm. The first ordering is xs itself.
func Permutations(xs []int64) [][]int64 {
	var (
		a   = append([]int64(nil), xs...)
		c   = make([]int, len(a))
		out = [][]int64{append([]int64(nil), a...)}
	)
	for i := 0; i < len(a); {
		if c[i] < i {
			if i%2 == 0 {
				a[0], a[i] = a[i], a[0]
			} else {
				a[c[i]], a[i] = a[i], a[c[i]]
			}
			out = append(out, append([]int64(nil), a...))
			c[i]++
			i = 0
		} else {
			c[i] = 0
			i++
		}
	}
	return out
}

// Result is the best signal found by Best and the phase order that
// produced it.
type Result struct {
	Signal int64
	Phases []int64
}

// Best evaluates fn for every ordering of phases and returns the one
// producing the highest signal. Orderings are evaluated concurrently,
// each with its own machines. Ties go to the ordering that Permutations
// lists first. Best stops at the first error or when ctx is done.
func Best(ctx context.Context, program, phases []int64, signal int64, fn Func) (Result, error) {
	var (
		perms   = Permutations(phases)
		signals = make([]int64, len(perms))
		ch      = make(chan int)
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		for i := range perms {
			select {
			case ch <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	// Distribute the orderings across GOMAXPROCS goroutines.
	for n := 0; n < runtime.GOMAXPROCS(0); n++ {
		g.Go(func() error {
			for i := range ch {
				s, err := fn(program, perms[i], signal)
				if err != nil {
					return err
				}
				signals[i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	best := 0
	for i, s := range signals {
		if s > signals[best] {
			best = i
		}
	}
	return Result{Signal: signals[best], Phases: perms[best]}, nil
}
