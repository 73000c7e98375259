package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
)

// console reads program input from the terminal, with line editing and
// a history shared between runs.
type console struct {
	rl *readline.Instance
}

func newConsole() (*console, error) {
	cfg := &readline.Config{
		Prompt:          "input> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "^D",
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.HistoryFile = filepath.Join(dir, "nic_history")
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	return &console{rl: rl}, nil
}

func (c *console) Readline() (string, error) {
	line, err := c.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (c *console) Close() error { return c.rl.Close() }
