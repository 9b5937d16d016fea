// Package sched fills in the scheduling control bits of every instruction:
// scoreboard barriers for variable-latency results and stall counts for
// fixed-latency ones. It runs after register assignment.
package sched

import (
	"fmt"

	"nakgo/internal/ir"
)

// Mode selects a scheduling strategy.
type Mode uint8

const (
	// ModeDefault tracks each register individually.
	ModeDefault Mode = iota
	// ModeSerial makes every instruction wait for the one before it.
	ModeSerial
)

var modeNames = []string{"default", "serial"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	if m, ok := ir.LookupName[Mode](modeNames, s); ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown schedule mode %q", s)
}

// Pass computes instruction dependencies for a whole shader.
type Pass struct {
	Mode Mode
}

func (p Pass) Name() string { return "calc-deps" }

func (p Pass) Run(shader *ir.Shader) error {
	CalcDeps(shader, p.Mode)
	return nil
}

// CalcDeps resets and recomputes the dependency information of every
// instruction.
func CalcDeps(shader *ir.Shader, mode Mode) {
	for _, fn := range shader.Functions {
		fn.MapInstrs(func(instr *ir.Instr) []*ir.Instr {
			if ir.IsPseudo(instr.Op) {
				panic(fmt.Sprintf("sched: pseudo op %s must be lowered first", instr.Op.Name()))
			}
			instr.Deps = ir.NewInstrDeps()
			return []*ir.Instr{instr}
		})
		switch mode {
		case ModeSerial:
			serialDeps(fn)
		default:
			allocBarriers(fn)
			calcDelays(fn)
		}
	}
}

// serialDeps uses barrier 0 for every pending write and barrier 1 for every
// pending read. Each instruction waits for whatever its predecessor set and
// stalls for the maximum delay.
func serialDeps(fn *ir.Function) {
	const (
		wrBar   = 0
		rdBar   = 1
		allBars = 1<<ir.NumBarriers - 1
	)
	var prev uint8
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.IsBranch() {
				instr.Deps.AddWaitMask(allBars)
			} else {
				instr.Deps.AddWaitMask(prev)
			}
			prev = 0
			if !instr.HasFixedLatency() {
				if len(dstRegs(instr)) > 0 {
					instr.Deps.SetWrBar(wrBar)
					prev |= 1 << wrBar
				}
				if len(srcRegs(instr)) > 0 {
					instr.Deps.SetRdBar(rdBar)
					prev |= 1 << rdBar
				}
			}
			instr.Deps.SetDelay(ir.MaxInstrDelay)
		}
	}
}
