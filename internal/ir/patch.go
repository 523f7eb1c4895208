package ir

// Patch is a staged edit buffer: a pass records mutations into a Patch and
// commits them to the Func atomically via Func.Apply. A pass that panics
// (see InvariantViolation) before calling Apply has touched no Func state,
// so the prior graph survives untouched (spec.md §7).
type Patch struct {
	ops []func(f *Func)
}

func NewPatch() *Patch {
	return &Patch{}
}

func (p *Patch) RemoveInstr(block BlockID, id InstrID) {
	p.ops = append(p.ops, func(f *Func) { f.RemoveInstr(block, id) })
}

func (p *Patch) AppendInstr(block BlockID, in *Instr) {
	p.ops = append(p.ops, func(f *Func) { _ = f.AppendInstr(block, in) })
}

func (p *Patch) PrependPhi(block BlockID, in *Instr) {
	p.ops = append(p.ops, func(f *Func) { _ = f.PrependPhi(block, in) })
}

// Mutate stages an arbitrary mutation. Passes use this for operand rewrites
// that don't fit RemoveInstr/AppendInstr (e.g. replacing a Targets entry or
// an operand Value in place).
func (p *Patch) Mutate(fn func(f *Func)) {
	p.ops = append(p.ops, fn)
}

func (p *Patch) Empty() bool {
	return len(p.ops) == 0
}

// Apply commits every staged mutation to f, in the order recorded.
func (f *Func) Apply(p *Patch) {
	for _, op := range p.ops {
		op(f)
	}
}
