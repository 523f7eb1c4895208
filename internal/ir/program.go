package ir

import (
	"irl/internal/source"
	"irl/internal/symbols"
	"irl/internal/types"
)

// Global is a named mutable cell of a type, optionally initialized.
type Global struct {
	Sym     symbols.Symbol
	Type    types.TypeID
	HasInit bool
	Init    int64
}

// Program is the whole compiled unit: type aliases (recorded in Types),
// globals with initializers, and functions that reference each other by
// symbol.
type Program struct {
	Types   *types.Interner
	Strings *source.Interner

	Globals     []*Global
	globalIndex map[source.StringID]*Global

	Funcs     []*Func
	funcIndex map[source.StringID]*Func
}

func NewProgram() *Program {
	return &Program{
		Types:       types.NewInterner(),
		Strings:     source.NewInterner(),
		globalIndex: make(map[source.StringID]*Global),
		funcIndex:   make(map[source.StringID]*Func),
	}
}

func (p *Program) AddGlobal(g *Global) bool {
	if _, exists := p.globalIndex[g.Sym.Name]; exists {
		return false
	}
	p.Globals = append(p.Globals, g)
	p.globalIndex[g.Sym.Name] = g
	return true
}

func (p *Program) Global(name source.StringID) (*Global, bool) {
	g, ok := p.globalIndex[name]
	return g, ok
}

func (p *Program) AddFunc(f *Func) bool {
	if _, exists := p.funcIndex[f.Name.Name]; exists {
		return false
	}
	p.Funcs = append(p.Funcs, f)
	p.funcIndex[f.Name.Name] = f
	return true
}

func (p *Program) Func(name source.StringID) (*Func, bool) {
	f, ok := p.funcIndex[name]
	return f, ok
}
