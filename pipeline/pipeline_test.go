package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nf/nic/intcode"
)

var (
	seriesProgs = []struct {
		prog   []int64
		phases []int64
		want   int64
	}{
		{
			[]int64{3, 15, 3, 16, 1002, 16, 10, 16, 1, 16, 15, 15, 4, 15, 99, 0, 0},
			[]int64{4, 3, 2, 1, 0}, 43210,
		},
		{
			[]int64{3, 23, 3, 24, 1002, 24, 10, 24, 1002, 23, -1, 23,
				101, 5, 23, 23, 1, 24, 23, 23, 4, 23, 99, 0, 0},
			[]int64{0, 1, 2, 3, 4}, 54321,
		},
		{
			[]int64{3, 31, 3, 32, 1002, 32, 10, 32, 1001, 31, -2, 31, 1007, 31, 0, 33,
				1002, 33, 7, 33, 1, 33, 31, 31, 1, 32, 31, 31, 4, 31, 99, 0, 0, 0},
			[]int64{1, 0, 4, 3, 2}, 65210,
		},
	}
	feedbackProgs = []struct {
		prog   []int64
		phases []int64
		want   int64
	}{
		{
			[]int64{3, 26, 1001, 26, -4, 26, 3, 27, 1002, 27, 2, 27, 1, 27, 26,
				27, 4, 27, 1001, 28, -1, 28, 1005, 28, 6, 99, 0, 0, 5},
			[]int64{9, 8, 7, 6, 5}, 139629729,
		},
		{
			[]int64{3, 52, 1001, 52, -5, 52, 3, 53, 1, 52, 56, 54, 1007, 54, 5, 55, 1005, 55, 26, 1001, 54,
				-5, 54, 1105, 1, 12, 1, 53, 54, 53, 1008, 54, 0, 55, 1001, 55, 1, 55, 2, 53,
				55, 53, 4, 53, 1001, 56, -1, 56, 1005, 56, 6, 99, 0, 0, 0, 0, 10},
			[]int64{9, 7, 8, 5, 6}, 18216,
		},
	}
)

func TestSeries(t *testing.T) {
	for i, c := range seriesProgs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			got, err := Series(c.prog, c.phases, 0)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestFeedback(t *testing.T) {
	for i, c := range feedbackProgs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			got, err := Feedback(c.prog, c.phases, 0)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestBest(t *testing.T) {
	for i, c := range seriesProgs {
		t.Run(fmt.Sprint("series", i), func(t *testing.T) {
			r, err := Best(context.Background(), c.prog, []int64{0, 1, 2, 3, 4}, 0, Series)
			require.NoError(t, err)
			assert.Equal(t, Result{Signal: c.want, Phases: c.phases}, r)
		})
	}
	for i, c := range feedbackProgs {
		t.Run(fmt.Sprint("feedback", i), func(t *testing.T) {
			r, err := Best(context.Background(), c.prog, []int64{5, 6, 7, 8, 9}, 0, Feedback)
			require.NoError(t, err)
			assert.Equal(t, Result{Signal: c.want, Phases: c.phases}, r)
		})
	}
}

func TestBestError(t *testing.T) {
	_, err := Best(context.Background(), []int64{99}, []int64{0, 1, 2}, 0, Series)
	var serr *StageError
	require.True(t, errors.As(err, &serr), "got %v, want *StageError", err)
	assert.Equal(t, 0, serr.Stage)
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestBestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fn := func(program, phases []int64, signal int64) (int64, error) {
		return 0, nil
	}
	_, err := Best(ctx, nil, []int64{0, 1, 2, 3, 4, 5, 6}, 0, fn)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStageFault(t *testing.T) {
	// A non-zero phase jumps to an invalid opcode.
	_, err := Series([]int64{3, 0, 1005, 0, 8, 104, 1, 99, 42}, []int64{0, 1}, 0)
	var serr *StageError
	require.True(t, errors.As(err, &serr), "got %v, want *StageError", err)
	assert.Equal(t, 1, serr.Stage)
	var herr intcode.HaltError
	require.True(t, errors.As(err, &herr), "got %v, want intcode.HaltError", err)
	assert.Equal(t, intcode.BadOp, herr.HaltCode)
}

func TestPermutations(t *testing.T) {
	perms := Permutations([]int64{0, 1, 2, 3, 4})
	require.Len(t, perms, 120)
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, perms[0])
	seen := map[[5]int64]bool{}
	for _, p := range perms {
		var k [5]int64
		copy(k[:], p)
		assert.False(t, seen[k], "duplicate permutation %v", p)
		seen[k] = true
	}

	assert.Len(t, Permutations(nil), 1)
	assert.Len(t, Permutations([]int64{1, 2, 3}), 6)
}
