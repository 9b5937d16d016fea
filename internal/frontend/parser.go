// Package frontend reads the textual shader IR.
//
// A file holds directives, then one or more functions:
//
//	.sm 75
//	.stage fragment
//	.writes_color 0xf
//	func main {
//	b0:
//	  mov %r1 = 0x3f800000
//	  isetp.lt.i32.and %p2 = %r1, rZ, pT
//	  @!%p2 bra b2
//	...
//	}
//
// Instructions use the same syntax ir.FormatInstr prints, so a dumped shader
// parses back to the same IR. A '-' in front of a decimal literal makes a
// negative immediate; in front of anything else, hex immediates included, it
// is a negation modifier.
package frontend

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"nakgo/internal/diag"
	"nakgo/internal/ir"
)

type parser struct {
	file     string
	line     int
	reporter *diag.Reporter
	errs     int

	shader *ir.Shader
	fn     *ir.Function
	block  *ir.BasicBlock
	maxSSA uint32
}

// Parse reads one shader. Every malformed line is reported; the error is
// non-nil if any was.
func Parse(file string, src []byte, reporter *diag.Reporter) (*ir.Shader, error) {
	p := &parser{
		file:     file,
		reporter: reporter,
		shader:   &ir.Shader{},
	}
	for idx, raw := range strings.Split(string(src), "\n") {
		p.line = idx + 1
		p.parseLine(stripComment(raw))
	}
	if p.fn != nil {
		p.errorf("function not closed")
	}
	if len(p.shader.Functions) == 0 && p.errs == 0 {
		p.errorf("no function defined")
	}
	if p.errs > 0 {
		return nil, fmt.Errorf("frontend: %s: %d parse errors", file, p.errs)
	}
	return p.shader, nil
}

// ParseString is Parse for in-memory sources.
func ParseString(file, src string, reporter *diag.Reporter) (*ir.Shader, error) {
	return Parse(file, []byte(src), reporter)
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func (p *parser) errorf(format string, args ...any) {
	p.errs++
	p.reporter.Error(diag.Pos{File: p.file, Line: p.line}, fmt.Sprintf(format, args...))
}

var labelRE = regexp.MustCompile(`^b(\d+):$`)

func (p *parser) parseLine(line string) {
	switch {
	case line == "":
	case strings.HasPrefix(line, "."):
		p.parseDirective(line)
	case strings.HasPrefix(line, "func "):
		if p.fn != nil {
			p.errorf("nested function")
			return
		}
		if !strings.HasSuffix(line, "{") {
			p.errorf("expected '{' after function name")
			return
		}
		p.fn = &ir.Function{}
		p.block = nil
		p.maxSSA = 0
	case line == "}":
		if p.fn == nil {
			p.errorf("unexpected '}'")
			return
		}
		p.fn.SSA.Reserve(p.maxSSA)
		p.shader.Functions = append(p.shader.Functions, p.fn)
		p.fn = nil
		p.block = nil
	case labelRE.MatchString(line):
		if p.fn == nil {
			p.errorf("block label outside function")
			return
		}
		id, _ := strconv.ParseUint(labelRE.FindStringSubmatch(line)[1], 10, 32)
		if _, _, dup := p.fn.BlockByID(uint32(id)); dup {
			p.errorf("duplicate block b%d", id)
			return
		}
		p.block = &ir.BasicBlock{ID: uint32(id)}
		p.fn.Blocks = append(p.fn.Blocks, p.block)
	default:
		if p.block == nil {
			p.errorf("instruction outside a block")
			return
		}
		instr, err := p.parseInstr(line)
		if err != nil {
			p.errorf("%v", err)
			return
		}
		p.block.Instrs = append(p.block.Instrs, instr)
	}
}

func (p *parser) parseDirective(line string) {
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		p.errorf("empty directive")
		return
	}
	name := fields[0]
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	info := &p.shader.Info
	switch name {
	case "sm":
		n, err := strconv.ParseUint(arg, 10, 8)
		if err != nil || n < 50 {
			p.errorf("invalid sm %q", arg)
			return
		}
		info.SM = uint8(n)
	case "stage":
		st, ok := ir.LookupName[ir.ShaderStage](ir.ShaderStageNames, arg)
		if !ok {
			p.errorf("unknown stage %q", arg)
			return
		}
		info.Stage.Stage = st
	case "topology":
		t, ok := ir.LookupName[ir.OutputTopology](ir.OutputTopologyNames, arg)
		if !ok {
			p.errorf("unknown topology %q", arg)
			return
		}
		info.Stage.OutputTopology = t
	case "num_gprs":
		n, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			p.errorf("invalid num_gprs %q", arg)
			return
		}
		info.NumGPRs = uint8(n)
	case "tls_size":
		n, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			p.errorf("invalid tls_size %q", arg)
			return
		}
		info.TLSSize = uint32(n)
	default:
		f, ok := ir.LookupStageField(name)
		if !ok {
			p.errorf("unknown directive .%s", name)
			return
		}
		if arg == "" {
			if !f.Bool {
				p.errorf(".%s needs a value", name)
				return
			}
			f.Set(&info.Stage, 1)
			return
		}
		n, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			p.errorf("invalid value %q for .%s", arg, name)
			return
		}
		f.Set(&info.Stage, n)
	}
}

var blockRefRE = regexp.MustCompile(`^b\d+$`)

func (p *parser) parseInstr(line string) (*ir.Instr, error) {
	deps := ir.NewInstrDeps()
	if i := strings.IndexByte(line, '{'); i >= 0 {
		if !strings.HasSuffix(line, "}") {
			return nil, fmt.Errorf("unterminated dependency block")
		}
		d, err := parseDeps(line[i+1 : len(line)-1])
		if err != nil {
			return nil, err
		}
		deps = d
		line = strings.TrimSpace(line[:i])
	}

	pred := ir.PredTrue()
	if strings.HasPrefix(line, "@") {
		tok, rest, _ := strings.Cut(line, " ")
		pr, err := p.parsePred(tok[1:])
		if err != nil {
			return nil, err
		}
		pred = pr
		line = strings.TrimSpace(rest)
	}

	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	parts := strings.Split(head, ".")
	op, ok := ir.NewOp(parts[0])
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", parts[0])
	}
	if len(parts) > 1 {
		a, ok := op.(ir.Attributed)
		if !ok {
			return nil, fmt.Errorf("%s takes no attributes", parts[0])
		}
		for _, attr := range parts[1:] {
			if !a.SetAttr(attr) {
				return nil, fmt.Errorf("unknown attribute %q for %s", attr, parts[0])
			}
		}
	}

	if t, ok := op.(ir.Targeted); ok {
		idx := strings.LastIndexAny(rest, " ,")
		last := strings.TrimSpace(rest[idx+1:])
		if !blockRefRE.MatchString(last) {
			return nil, fmt.Errorf("%s needs a target block", parts[0])
		}
		id, _ := strconv.ParseUint(last[1:], 10, 32)
		t.SetTarget(uint32(id))
		if idx < 0 {
			rest = ""
		} else {
			rest = strings.TrimSpace(rest[:idx])
		}
	}

	var dstToks, srcToks []string
	if lhs, rhs, ok := strings.Cut(rest, "="); ok {
		dstToks = splitOperands(lhs)
		srcToks = splitOperands(rhs)
	} else {
		srcToks = splitOperands(rest)
	}

	instr := ir.NewInstr(op)
	instr.Pred = pred
	instr.Deps = deps
	if v, ok := op.(ir.Variadic); ok {
		v.Resize(len(dstToks), len(srcToks))
	}

	dsts := instr.Dsts()
	if len(dstToks) > len(dsts) {
		return nil, fmt.Errorf("%s has %d destinations, got %d", parts[0], len(dsts), len(dstToks))
	}
	for i, tok := range dstToks {
		d, err := p.parseDst(tok)
		if err != nil {
			return nil, err
		}
		*dsts[i] = d
	}

	srcs := instr.Srcs()
	types := instr.SrcTypes()
	if len(srcToks) > len(srcs) {
		return nil, fmt.Errorf("%s has %d sources, got %d", parts[0], len(srcs), len(srcToks))
	}
	for i, tok := range srcToks {
		s, err := p.parseSrc(tok, types[i])
		if err != nil {
			return nil, err
		}
		*srcs[i] = s
	}
	return instr, nil
}

// splitOperands splits on commas outside brackets.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

var (
	ssaRE    = regexp.MustCompile(`^%(r|ur|p|up|b)(\d+)$`)
	ssaVecRE = regexp.MustCompile(`^%(r|ur|p|up|b)\[([\d,\s]+)\]$`)
	regRE    = regexp.MustCompile(`^(r|ur|p|up|b)(\d+)(?::(\d+))?$`)
	cbufRE   = regexp.MustCompile(`^c\[([^\]]+)\]\[([^\]]+)\]$`)
)

var regFiles = map[string]ir.RegFile{
	"r":  ir.FileGPR,
	"ur": ir.FileUGPR,
	"p":  ir.FilePred,
	"up": ir.FileUPred,
	"b":  ir.FileBar,
}

func (p *parser) ssaValue(file ir.RegFile, digits string) (ir.SSAValue, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(digits), 10, 29)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid SSA index %q", digits)
	}
	if uint32(n) > p.maxSSA {
		p.maxSSA = uint32(n)
	}
	return ir.NewSSAValue(file, uint32(n)), nil
}

func (p *parser) parseSSA(tok string) (ir.SSARef, bool, error) {
	if m := ssaRE.FindStringSubmatch(tok); m != nil {
		v, err := p.ssaValue(regFiles[m[1]], m[2])
		if err != nil {
			return ir.SSARef{}, true, err
		}
		return ir.NewSSARef(v), true, nil
	}
	if m := ssaVecRE.FindStringSubmatch(tok); m != nil {
		var vals []ir.SSAValue
		for _, d := range strings.Split(m[2], ",") {
			v, err := p.ssaValue(regFiles[m[1]], d)
			if err != nil {
				return ir.SSARef{}, true, err
			}
			vals = append(vals, v)
		}
		if len(vals) > ir.MaxSSAComps {
			return ir.SSARef{}, true, fmt.Errorf("vector %s has more than %d components", tok, ir.MaxSSAComps)
		}
		return ir.NewSSARef(vals...), true, nil
	}
	return ir.SSARef{}, false, nil
}

func parseReg(tok string) (ir.RegRef, bool, error) {
	m := regRE.FindStringSubmatch(tok)
	if m == nil {
		return ir.RegRef{}, false, nil
	}
	file := regFiles[m[1]]
	base, _ := strconv.Atoi(m[2])
	comps := 1
	if m[3] != "" {
		comps, _ = strconv.Atoi(m[3])
	}
	if comps < 1 || comps > 8 || base+comps > file.NumRegs() {
		return ir.RegRef{}, true, fmt.Errorf("register %s out of range", tok)
	}
	return ir.NewRegRef(file, base, comps), true, nil
}

func (p *parser) parseDst(tok string) (ir.Dst, error) {
	if tok == "_" {
		return ir.DstNone{}, nil
	}
	if ssa, ok, err := p.parseSSA(tok); ok {
		return ssa, err
	}
	if reg, ok, err := parseReg(tok); ok {
		return reg, err
	}
	return nil, fmt.Errorf("invalid destination %q", tok)
}

func (p *parser) parsePred(tok string) (ir.Pred, error) {
	pred := ir.PredTrue()
	if strings.HasPrefix(tok, "!") {
		pred.Inv = true
		tok = tok[1:]
	}
	if tok == "pT" {
		return pred, nil
	}
	if ssa, ok, err := p.parseSSA(tok); ok {
		if err != nil {
			return pred, err
		}
		if ssa.Comps() != 1 || !ssa.IsPredicate() {
			return pred, fmt.Errorf("guard %s is not a scalar predicate", tok)
		}
		pred.Ref = ssa.At(0)
		return pred, nil
	}
	if reg, ok, err := parseReg(tok); ok {
		if err != nil {
			return pred, err
		}
		if reg.Comps() != 1 || !reg.File().IsPredicate() {
			return pred, fmt.Errorf("guard %s is not a predicate register", tok)
		}
		pred.Ref = reg
		return pred, nil
	}
	return pred, fmt.Errorf("invalid guard %q", tok)
}

func (p *parser) parseSrc(tok string, typ ir.SrcType) (ir.Src, error) {
	float := typ == ir.SrcF32 || typ == ir.SrcF64
	mod := ir.ModNone
	switch {
	case strings.HasPrefix(tok, "-|") && strings.HasSuffix(tok, "|"):
		mod = ir.ModFNegAbs
		tok = tok[2 : len(tok)-1]
	case strings.HasPrefix(tok, "|") && strings.HasSuffix(tok, "|") && len(tok) > 1:
		mod = ir.ModFAbs
		tok = tok[1 : len(tok)-1]
	case strings.HasPrefix(tok, "!"):
		mod = ir.ModBNot
		tok = tok[1:]
	case strings.HasPrefix(tok, "-") && len(tok) > 1 && !isDecimal(tok[1:]):
		mod = ir.ModINeg
		if float {
			mod = ir.ModFNeg
		}
		tok = tok[1:]
	}
	ref, err := p.parseSrcRef(tok)
	if err != nil {
		return ir.Src{}, err
	}
	return ir.Src{Ref: ref, Mod: mod}, nil
}

func (p *parser) parseSrcRef(tok string) (ir.SrcRef, error) {
	switch tok {
	case "rZ", "urZ":
		return ir.SrcZero{}, nil
	case "pT":
		return ir.SrcTrue{}, nil
	case "pF":
		return ir.SrcFalse{}, nil
	}
	if ssa, ok, err := p.parseSSA(tok); ok {
		return ssa, err
	}
	if reg, ok, err := parseReg(tok); ok {
		return reg, err
	}
	if m := cbufRE.FindStringSubmatch(tok); m != nil {
		return p.parseCBuf(m[1], m[2])
	}
	if imm, ok := parseImm(tok); ok {
		return ir.Imm32(imm), nil
	}
	return nil, fmt.Errorf("invalid source %q", tok)
}

func (p *parser) parseCBuf(buf, off string) (ir.SrcRef, error) {
	offset, err := strconv.ParseUint(off, 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid constant buffer offset %q", off)
	}
	ref := ir.CBufRef{Offset: uint16(offset)}
	if ssa, ok, err := p.parseSSA(buf); ok {
		if err != nil {
			return nil, err
		}
		ref.Buf = ir.CBufBindlessSSA{Handle: ssa.At(0)}
		return ref, nil
	}
	if reg, ok, err := parseReg(buf); ok {
		if err != nil {
			return nil, err
		}
		ref.Buf = ir.CBufBindlessGPR{Handle: reg}
		return ref, nil
	}
	idx, err := strconv.ParseUint(buf, 0, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid constant buffer %q", buf)
	}
	ref.Buf = ir.CBufBinding(idx)
	return ref, nil
}

func isDecimal(s string) bool {
	if strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// parseImm accepts hex, decimal (negative values wrap to 32 bits) and float
// literals ending in 'f'.
func parseImm(tok string) (uint32, bool) {
	if strings.HasSuffix(tok, "f") && strings.Contains(tok, ".") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(tok, "f"), 32)
		if err != nil {
			return 0, false
		}
		return math.Float32bits(float32(f)), true
	}
	if strings.HasPrefix(tok, "-") {
		n, err := strconv.ParseInt(tok, 0, 32)
		if err != nil {
			return 0, false
		}
		return uint32(int32(n)), true
	}
	n, err := strconv.ParseUint(tok, 0, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func parseDeps(body string) (ir.InstrDeps, error) {
	deps := ir.NewInstrDeps()
	for _, f := range strings.Fields(body) {
		if f == "yield" {
			deps.Yield = true
			continue
		}
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return deps, fmt.Errorf("invalid dependency field %q", f)
		}
		n, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return deps, fmt.Errorf("invalid dependency value %q", f)
		}
		switch k {
		case "delay":
			if n < ir.MinInstrDelay || n > ir.MaxInstrDelay {
				return deps, fmt.Errorf("delay %d out of range", n)
			}
			deps.Delay = uint8(n)
		case "wr", "rd":
			if n >= ir.NumBarriers {
				return deps, fmt.Errorf("barrier %d out of range", n)
			}
			if k == "wr" {
				deps.WrBar = int8(n)
			} else {
				deps.RdBar = int8(n)
			}
		case "wait":
			if n >= 1<<ir.NumBarriers {
				return deps, fmt.Errorf("wait mask %#x out of range", n)
			}
			deps.WaitMask = uint8(n)
		case "reuse":
			deps.ReuseMask = uint8(n)
		default:
			return deps, fmt.Errorf("unknown dependency field %q", k)
		}
	}
	return deps, nil
}
