package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// symbols is a list of labelled addresses sorted by address.
type symbols []symbol

type symbol struct {
	addr  int
	label string
}

func (s symbol) String() string {
	if s.label == "" {
		return strconv.Itoa(s.addr)
	}
	return fmt.Sprintf("%s (%d)", s.label, s.addr)
}

// newSymbols builds a symbol table from a map of labels to addresses.
func newSymbols(labels map[string]int) symbols {
	ss := make(symbols, 0, len(labels))
	for l, a := range labels {
		ss = append(ss, symbol{addr: a, label: l})
	}
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].addr != ss[j].addr {
			return ss[i].addr < ss[j].addr
		}
		return ss[i].label < ss[j].label
	})
	return ss
}

func (s symbols) forAddr(addr int) (ss []symbol) {
	i := sort.Search(len(s), func(i int) bool { return s[i].addr >= addr })
	for ; i < len(s) && s[i].addr == addr; i++ {
		ss = append(ss, s[i])
	}
	return ss
}

// resolve looks up a label or parses a decimal address.
func (s symbols) resolve(arg string) (symbol, bool) {
	for _, sym := range s {
		if sym.label == arg {
			return sym, true
		}
	}
	addr, err := strconv.Atoi(arg)
	if err != nil || addr < 0 {
		return symbol{}, false
	}
	if ss := s.forAddr(addr); len(ss) > 0 {
		return ss[0], true
	}
	return symbol{addr: addr}, true
}

func (s symbols) withLabelPrefix(p string) (ss []symbol) {
	for _, sym := range s {
		if strings.HasPrefix(sym.label, p) {
			ss = append(ss, sym)
		}
	}
	return ss
}
