// Command nic executes intcode programs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/nf/nic/intcode"
	"github.com/nf/nic/pipeline"
)

var logger = commonlog.GetLogger("nic")

// errFaulted is returned when the program halted because of a fault.
// The fault itself has already been logged.
var errFaulted = errors.New("program faulted")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errFaulted) {
			fmt.Fprintf(os.Stderr, "nic: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose    int
		quiet      bool
		logFile    string
		cpuProfile string
		profFile   *os.File
	)
	root := &cobra.Command{
		Use:           "nic",
		Short:         "Run intcode programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := verbose
			if quiet {
				v = -4
			}
			var path *string
			if logFile != "" {
				path = &logFile
			}
			commonlog.Configure(v, path)

			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return fmt.Errorf("creating CPU profile file: %v", err)
				}
				if err := pprof.StartCPUProfile(f); err != nil {
					f.Close()
					return err
				}
				profFile = f
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if f := profFile; f != nil {
				pprof.StopCPUProfile()
				f.Close()
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	pf := root.PersistentFlags()
	pf.CountVarP(&verbose, "verbose", "v", "increase log verbosity (repeatable)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "disable logging")
	pf.StringVar(&logFile, "log", "", "write log to `file` instead of stderr")
	pf.StringVar(&cpuProfile, "cpu-profile", "", "write CPU profile to `file`")

	root.AddCommand(
		newRunCmd(),
		newAmpCmd(),
		newDebugCmd(),
		newWatchCmd(),
	)
	return root
}

// runFlags are the flags shared by commands that run a single program.
type runFlags struct {
	inputs      []int64
	patches     []string
	policy      string
	memLimit    int
	interactive bool
	screen      bool
	gui         bool
	png         string
	scale       int
}

// registerMachine registers the flags that set up the machine.
func (f *runFlags) registerMachine(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Int64SliceVarP(&f.inputs, "input", "i", nil, "input values, in order")
	fs.StringArrayVar(&f.patches, "set", nil, "store a value before running, as `addr=value` (repeatable)")
	fs.IntVar(&f.memLimit, "mem-limit", 0, "maximum memory size in words (0 for the default)")
}

// register registers all run flags.
func (f *runFlags) register(cmd *cobra.Command) {
	f.registerMachine(cmd)
	fs := cmd.Flags()
	fs.StringVar(&f.policy, "policy", intcode.UntilHalt.String(), "stop policy: halt, output or input")
	fs.BoolVar(&f.interactive, "interactive", false, "prompt for input whenever the program needs it")
	fs.BoolVar(&f.screen, "screen", false, "treat output as x,y,tile triples and draw them")
	fs.BoolVar(&f.gui, "gui", false, "draw the screen in a window (implies -screen)")
	fs.StringVar(&f.png, "png", "", "write the final screen to a PNG `file` (implies -screen)")
	fs.IntVar(&f.scale, "scale", 0, "screen pixels per tile")
}

// config loads the configuration for arg and applies the flags that
// were set on the command line.
func (f *runFlags) config(cmd *cobra.Command, arg string) (*runConfig, error) {
	c, err := configFor(arg)
	if err != nil {
		return nil, err
	}
	fs := cmd.Flags()
	if fs.Changed("input") {
		c.Inputs = f.inputs
	}
	for _, s := range f.patches {
		p, err := parsePatch(s)
		if err != nil {
			return nil, err
		}
		c.Patches = append(c.Patches, p)
	}
	if fs.Changed("policy") {
		c.Policy = f.policy
	}
	if fs.Changed("mem-limit") {
		c.MemLimit = f.memLimit
	}
	if fs.Changed("interactive") {
		c.Interactive = f.interactive
	}
	if fs.Changed("screen") {
		c.Screen.Enabled = f.screen
	}
	if fs.Changed("gui") {
		c.Screen.GUI = f.gui
	}
	if fs.Changed("png") {
		c.Screen.PNG = f.png
	}
	if fs.Changed("scale") {
		c.Screen.Scale = f.scale
	}
	c.setDefaults()
	if _, err := intcode.ParseStopPolicy(c.Policy); err != nil {
		return nil, err
	}
	return c, nil
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [flags] <program | run.toml>",
		Short: "Run a program and print its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.config(cmd, args[0])
			if err != nil {
				return err
			}
			if c.Screen.GUI {
				return runGUI(c, cmd.OutOrStdout())
			}
			var in lineReader
			if c.Interactive {
				rl, err := newConsole()
				if err != nil {
					return err
				}
				defer rl.Close()
				in = rl
			}
			return run(c, cmd.OutOrStdout(), in)
		},
	}
	f.register(cmd)
	return cmd
}

func newDebugCmd() *cobra.Command {
	var (
		f     runFlags
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "debug [flags] <program | run.toml>",
		Short: "Step through a program in a terminal debugger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.config(cmd, args[0])
			if err != nil {
				return err
			}
			if !watch {
				return debug(c, nil)
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			reloads := make(chan *intcode.Machine)
			go func() {
				first := true
				err := watchFiles(ctx, watchedPaths(args[0], c), func() {
					if first {
						first = false
						return
					}
					c, err := f.config(cmd, args[0])
					if err != nil {
						logger.Errorf("%v", err)
						return
					}
					m, err := c.load()
					if err != nil {
						logger.Errorf("%v", err)
						return
					}
					select {
					case reloads <- m:
					case <-ctx.Done():
					}
				})
				if err != nil {
					logger.Errorf("watch: %v", err)
				}
			}()
			return debug(c, reloads)
		},
	}
	f.registerMachine(cmd)
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the program when it changes")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "watch [flags] <program | run.toml>",
		Short: "Run a program again each time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.config(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			n := 0
			return watchFiles(cmd.Context(), watchedPaths(args[0], c), func() {
				n++
				c, err := f.config(cmd, args[0])
				if err == nil {
					logger.Noticef("run %d: %s", n, c.Program)
					err = run(c, out, nil)
				}
				if err != nil && !errors.Is(err, errFaulted) {
					logger.Errorf("run %d: %v", n, err)
				}
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newAmpCmd() *cobra.Command {
	var (
		feedback bool
		phases   []int64
		signal   int64
	)
	cmd := &cobra.Command{
		Use:   "amp [flags] <program>",
		Short: "Find the phase order giving the strongest amplifier signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			prog, err := intcode.ParseProgram(string(text))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fn, mode := pipeline.Series, "series"
			if feedback {
				fn, mode = pipeline.Feedback, "feedback"
			}
			if !cmd.Flags().Changed("phases") {
				phases = []int64{0, 1, 2, 3, 4}
				if feedback {
					phases = []int64{5, 6, 7, 8, 9}
				}
			}
			logger.Infof("searching %d %s phase orders", len(pipeline.Permutations(phases)), mode)
			r, err := pipeline.Best(cmd.Context(), prog, phases, signal, fn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", r.Signal, joinInts(r.Phases))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&feedback, "feedback", false, "connect the last amplifier back to the first")
	fs.Int64SliceVar(&phases, "phases", nil, "phase settings to permute (default 0-4, or 5-9 with -feedback)")
	fs.Int64Var(&signal, "signal", 0, "input signal to the first amplifier")
	return cmd
}

func joinInts(vs []int64) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = fmt.Sprint(v)
	}
	return strings.Join(s, ",")
}
