package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nf/nic/intcode"
)

// runConfig describes a program run. It is read from a TOML run file
// and then overridden by command line flags.
type runConfig struct {
	Program     string         `toml:"program"`
	Inputs      []int64        `toml:"inputs"`
	Policy      string         `toml:"policy"`
	MemLimit    int            `toml:"mem_limit"`
	Interactive bool           `toml:"interactive"`
	Patches     []patch        `toml:"patch"`
	Labels      map[string]int `toml:"labels"`
	Screen      screenConfig   `toml:"screen"`
}

// patch stores Value at Addr before the program starts.
type patch struct {
	Addr  int   `toml:"addr"`
	Value int64 `toml:"value"`
}

type screenConfig struct {
	Enabled bool   `toml:"enabled"`
	GUI     bool   `toml:"gui"`
	PNG     string `toml:"png"`
	Scale   int    `toml:"scale"`
}

// loadRunFile parses a TOML run file. A relative program path is taken
// to be relative to the directory containing the run file.
func loadRunFile(path string) (*runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c runConfig
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Program == "" {
		return nil, fmt.Errorf("%s: no program", path)
	}
	if !filepath.IsAbs(c.Program) {
		c.Program = filepath.Join(filepath.Dir(path), c.Program)
	}
	c.setDefaults()
	return &c, nil
}

// configFor returns the run configuration named by arg, which is either
// a TOML run file or an intcode program.
func configFor(arg string) (*runConfig, error) {
	if filepath.Ext(arg) == ".toml" {
		return loadRunFile(arg)
	}
	c := &runConfig{Program: arg}
	c.setDefaults()
	return c, nil
}

func (c *runConfig) setDefaults() {
	if c.Policy == "" {
		c.Policy = intcode.UntilHalt.String()
	}
	if c.Screen.Scale == 0 {
		c.Screen.Scale = 8
	}
	if c.Screen.GUI || c.Screen.PNG != "" {
		c.Screen.Enabled = true
	}
}

// parsePatch parses a patch written as addr=value.
func parsePatch(s string) (patch, error) {
	a, v, ok := strings.Cut(s, "=")
	if !ok {
		return patch{}, fmt.Errorf("bad patch %q: want addr=value", s)
	}
	addr, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return patch{}, fmt.Errorf("bad patch address %q: %v", a, err)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return patch{}, fmt.Errorf("bad patch value %q: %v", v, err)
	}
	return patch{Addr: addr, Value: value}, nil
}

// parseInts parses integers separated by commas or white space.
func parseInts(s string) ([]int64, error) {
	var vs []int64
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}) {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad input %q", f)
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// load reads the program and returns a machine with the configured
// memory limit, patches and inputs applied.
func (c *runConfig) load() (*intcode.Machine, error) {
	text, err := os.ReadFile(c.Program)
	if err != nil {
		return nil, err
	}
	m, err := intcode.Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Program, err)
	}
	m.MemLimit = c.MemLimit
	m.Logf = logger.Warningf
	for _, p := range c.Patches {
		if err := m.SetMem(p.Addr, p.Value); err != nil {
			return nil, err
		}
	}
	m.PushInput(c.Inputs...)
	return m, nil
}
