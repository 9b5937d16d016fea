// Package validate checks structural invariants of the IR between pipeline
// stages. Violations are reported through a diag.Reporter so that one run
// lists all of them.
package validate

import (
	"fmt"

	"nakgo/internal/diag"
	"nakgo/internal/ir"
)

// Stage names the point of the pipeline a shader is checked at; each stage
// adds rules to the previous one.
type Stage uint8

const (
	// StageSSA is the form the frontend produces.
	StageSSA Stage = iota
	// StageLegal holds after legalization.
	StageLegal
	// StageRegs holds once registers are assigned.
	StageRegs
)

var stageNames = []string{"ssa", "legal", "regs"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// CheckShader validates every function of shader at the given stage.
func CheckShader(shader *ir.Shader, stage Stage, reporter *diag.Reporter) error {
	if shader == nil {
		return fmt.Errorf("no shader provided for validation")
	}
	c := &checker{reporter: reporter, stage: stage}
	for i, fn := range shader.Functions {
		c.fn = i
		c.checkFunction(fn)
	}
	if c.errCount > 0 {
		return fmt.Errorf("validation (%s) failed with %d issue(s)", stage, c.errCount)
	}
	return nil
}

// Pass runs CheckShader as a pipeline step.
type Pass struct {
	Stage    Stage
	Reporter *diag.Reporter
}

func (p Pass) Name() string { return "validate-" + p.Stage.String() }

func (p Pass) Run(shader *ir.Shader) error { return CheckShader(shader, p.Stage, p.Reporter) }

type checker struct {
	reporter *diag.Reporter
	stage    Stage
	errCount int
	fn       int
}

func (c *checker) checkFunction(fn *ir.Function) {
	defs := make(map[ir.SSAValue]bool)
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			instr.ForEachSSADef(func(v ir.SSAValue) {
				if defs[v] {
					c.error(b, "%v is defined more than once", v)
				}
				defs[v] = true
			})
		}
	}

	for _, b := range fn.Blocks {
		for ip, instr := range b.Instrs {
			if instr.IsBranch() && ip != len(b.Instrs)-1 {
				c.error(b, "%s is not the last instruction of its block", instr)
			}
			instr.ForEachSSAUse(func(v ir.SSAValue) {
				if !defs[v] {
					c.error(b, "%v is used but never defined", v)
				}
			})
			c.checkInstr(b, instr)
		}
	}
}

func (c *checker) checkInstr(b *ir.BasicBlock, instr *ir.Instr) {
	pseudo := ir.IsPseudo(instr.Op)
	if c.stage >= StageLegal && !pseudo {
		types := instr.SrcTypes()
		for i, s := range instr.Srcs() {
			if !s.SupportsType(types[i]) {
				c.error(b, "%s: source %d (%s) is not a valid %s", instr, i, ir.FormatSrc(*s), types[i])
			}
		}
	}
	if c.stage < StageRegs {
		return
	}

	if pseudo {
		c.error(b, "%s: pseudo op was not lowered", instr)
	}
	if _, ok := instr.Pred.Ref.(ir.SSAValue); ok {
		c.error(b, "%s: guard is still an SSA value", instr)
	}
	for _, d := range instr.Dsts() {
		switch r := (*d).(type) {
		case ir.SSARef:
			c.error(b, "%s: destination is still an SSA value", instr)
		case ir.RegRef:
			c.checkRange(b, instr, r)
		}
	}
	for _, s := range instr.Srcs() {
		if len(s.SSAValues()) > 0 {
			c.error(b, "%s: source %s is still an SSA value", instr, ir.FormatSrc(*s))
		}
		if r, ok := s.Ref.(ir.RegRef); ok {
			c.checkRange(b, instr, r)
		}
	}
}

// checkRange rejects misaligned vectors and vectors overlapping the zero
// register.
func (c *checker) checkRange(b *ir.BasicBlock, instr *ir.Instr, r ir.RegRef) {
	if r.Comps() == 1 {
		return
	}
	align := 4
	if r.Comps() == 2 {
		align = 2
	}
	if r.Base()%align != 0 {
		c.error(b, "%s: %v is not aligned to %d registers", instr, r, align)
	}
	if z, ok := r.File().ZeroIdx(); ok && r.Base()+r.Comps() > z {
		c.error(b, "%s: %v overlaps the zero register", instr, r)
	}
}

func (c *checker) error(b *ir.BasicBlock, format string, args ...any) {
	c.errCount++
	if c.reporter != nil {
		msg := fmt.Sprintf("function %d, b%d: ", c.fn, b.ID) + fmt.Sprintf(format, args...)
		c.reporter.Errorf("%s", msg)
	}
}
