package sched

import "nakgo/internal/ir"

// calcDelays walks the function backwards. cycle counts issue slots from the
// end; ready records, per register, the cycle by which a later reader needs
// it.
func calcDelays(fn *ir.Function) {
	cycle := 0
	ready := newRegTracker(0)
	for bi := len(fn.Blocks) - 1; bi >= 0; bi-- {
		instrs := fn.Blocks[bi].Instrs
		for ii := len(instrs) - 1; ii >= 0; ii-- {
			instr := instrs[ii]
			r := cycle + 1
			if lat, ok := instr.Latency(); ok {
				dstsReady := 0
				for _, reg := range dstRegs(instr) {
					for _, c := range ready.regs(reg) {
						dstsReady = max(dstsReady, c)
					}
				}
				r = max(r, dstsReady+lat)
			}
			for _, reg := range srcRegs(instr) {
				slots := ready.regs(reg)
				for i := range slots {
					slots[i] = r
				}
			}
			instr.Deps.SetDelay(min(max(r-cycle, ir.MinInstrDelay), ir.MaxInstrDelay))
			cycle = r
		}
	}
}
