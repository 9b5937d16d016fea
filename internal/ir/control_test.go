package ir

import (
	"testing"
)

func blockOf(instrs ...*Instr) *BasicBlock {
	return &BasicBlock{ID: 0, Instrs: instrs}
}

func TestBranchTerminatesBlock(t *testing.T) {
	var alloc SSAAlloc
	v := alloc.AllocVec(FileGPR, 1)
	mov := NewInstr(NewMov(v, ImmSrc(1)))
	bra := NewInstr(&Bra{TargetID: 3})

	b := blockOf(mov, bra)
	if b.Branch() != bra {
		t.Fatalf("expected bra to be the block terminator")
	}
	if b.FallsThrough() {
		t.Fatalf("unpredicated branch must not fall through")
	}

	p := alloc.Alloc(FilePred)
	bra.Pred = Pred{Ref: p, Inv: true}
	if !b.FallsThrough() {
		t.Fatalf("predicated branch must fall through")
	}

	if blockOf(mov).Branch() != nil {
		t.Fatalf("block without branch reported a terminator")
	}
	if !blockOf(mov).FallsThrough() {
		t.Fatalf("block without branch must fall through")
	}
}

func TestExitIsBranch(t *testing.T) {
	if !NewInstr(&Exit{}).IsBranch() {
		t.Fatalf("exit must count as a branch")
	}
	if NewInstr(&Bar{}).IsBranch() {
		t.Fatalf("bar is not a branch")
	}
}

func TestInstrDepsDefaults(t *testing.T) {
	d := NewInstrDeps()
	if d.Delay != MaxInstrDelay || d.WrBar != -1 || d.RdBar != -1 || d.WaitMask != 0 {
		t.Fatalf("unexpected defaults %+v", d)
	}
	d.SetWrBar(5)
	d.SetRdBar(0)
	d.AddWaitMask(0x21)
	if d.WrBar != 5 || d.RdBar != 0 || d.WaitMask != 0x21 {
		t.Fatalf("unexpected deps %+v", d)
	}
}

func TestInstrDepsRejectBadValues(t *testing.T) {
	cases := map[string]func(*InstrDeps){
		"delay0":   func(d *InstrDeps) { d.SetDelay(0) },
		"delay16":  func(d *InstrDeps) { d.SetDelay(16) },
		"bar6":     func(d *InstrDeps) { d.SetWrBar(6) },
		"rdneg":    func(d *InstrDeps) { d.SetRdBar(-1) },
		"wait0x40": func(d *InstrDeps) { d.AddWaitMask(0x40) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			d := NewInstrDeps()
			fn(&d)
		})
	}
}

func TestMapInstrsSplicesAndDeletes(t *testing.T) {
	var alloc SSAAlloc
	a := alloc.AllocVec(FileGPR, 1)
	bb := alloc.AllocVec(FileGPR, 1)
	b := blockOf(NewInstr(NewMov(a, ImmSrc(1))), NewInstr(&Undef{Dst: bb}), NewInstr(&Exit{}))
	b.MapInstrs(func(i *Instr) []*Instr {
		switch i.Op.(type) {
		case *Undef:
			return nil
		case *Mov:
			return []*Instr{i, NewInstr(NewMov(bb, NewSrc(a)))}
		}
		return []*Instr{i}
	})
	if len(b.Instrs) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(b.Instrs))
	}
	if _, ok := b.Instrs[2].Op.(*Exit); !ok {
		t.Fatalf("exit must stay last, got %s", b.Instrs[2].Op.Name())
	}
}
