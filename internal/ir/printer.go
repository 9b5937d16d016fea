package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the shader in the text form accepted by the frontend.
func Dump(shader *Shader, w io.Writer) {
	if shader == nil {
		fmt.Fprintln(w, "<nil shader>")
		return
	}
	dumpInfo(&shader.Info, w)
	for idx, fn := range shader.Functions {
		name := "main"
		if idx > 0 {
			name = fmt.Sprintf("f%d", idx)
		}
		fmt.Fprintf(w, "func %s {\n", name)
		DumpFunction(fn, w)
		fmt.Fprintln(w, "}")
	}
}

func dumpInfo(info *ShaderInfo, w io.Writer) {
	fmt.Fprintf(w, ".sm %d\n", info.SM)
	fmt.Fprintf(w, ".stage %s\n", info.Stage.Stage)
	if info.NumGPRs != 0 {
		fmt.Fprintf(w, ".num_gprs %d\n", info.NumGPRs)
	}
	if info.TLSSize != 0 {
		fmt.Fprintf(w, ".tls_size %#x\n", info.TLSSize)
	}
	if info.Stage.Stage == StageGeometry {
		fmt.Fprintf(w, ".topology %s\n", info.Stage.OutputTopology)
	}
	for _, f := range StageFields {
		v := f.Get(&info.Stage)
		switch {
		case v == 0:
		case f.Bool:
			fmt.Fprintf(w, ".%s\n", f.Name)
		default:
			fmt.Fprintf(w, ".%s %#x\n", f.Name, v)
		}
	}
}

// DumpFunction writes the blocks of fn.
func DumpFunction(fn *Function, w io.Writer) {
	for _, block := range fn.Blocks {
		fmt.Fprintf(w, "b%d:\n", block.ID)
		for _, instr := range block.Instrs {
			fmt.Fprintf(w, "  %s\n", FormatInstr(instr))
		}
	}
}

// FormatInstr renders one instruction.
func FormatInstr(instr *Instr) string {
	var sb strings.Builder
	if !instr.Pred.IsTrue() {
		sb.WriteString("@")
		sb.WriteString(FormatPred(instr.Pred))
		sb.WriteString(" ")
	}
	sb.WriteString(instr.Op.Name())
	if a, ok := instr.Op.(Attributed); ok {
		for _, attr := range a.Attrs() {
			sb.WriteString(".")
			sb.WriteString(attr)
		}
	}

	dsts := instr.Dsts()
	last := -1
	for i, d := range dsts {
		if _, none := (*d).(DstNone); !none && *d != nil {
			last = i
		}
	}
	if last >= 0 {
		sb.WriteString(" ")
		for i := 0; i <= last; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(FormatDst(*dsts[i]))
		}
		sb.WriteString(" =")
	}

	for i, s := range instr.Srcs() {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" ")
		sb.WriteString(FormatSrc(*s))
	}
	if t, ok := instr.Op.(Targeted); ok {
		fmt.Fprintf(&sb, " b%d", t.Target())
	}
	if instr.Deps != NewInstrDeps() {
		sb.WriteString(" ")
		sb.WriteString(FormatDeps(instr.Deps))
	}
	return sb.String()
}

// FormatPred renders a guard without the leading '@'.
func FormatPred(p Pred) string {
	prefix := ""
	if p.Inv {
		prefix = "!"
	}
	switch r := p.Ref.(type) {
	case SSAValue:
		return prefix + r.String()
	case RegRef:
		return prefix + r.String()
	default:
		return prefix + "pT"
	}
}

// FormatDst renders a destination.
func FormatDst(d Dst) string {
	switch r := d.(type) {
	case SSARef:
		return r.String()
	case RegRef:
		return r.String()
	default:
		return "_"
	}
}

// FormatSrc renders a source with its modifier.
func FormatSrc(s Src) string {
	ref := formatSrcRef(s.Ref)
	switch s.Mod {
	case ModFAbs:
		return "|" + ref + "|"
	case ModFNeg, ModINeg:
		return "-" + ref
	case ModFNegAbs:
		return "-|" + ref + "|"
	case ModBNot:
		return "!" + ref
	default:
		return ref
	}
}

func formatSrcRef(ref SrcRef) string {
	switch r := ref.(type) {
	case SrcZero:
		return "rZ"
	case SrcTrue:
		return "pT"
	case SrcFalse:
		return "pF"
	case Imm32:
		return fmt.Sprintf("%#x", uint32(r))
	case CBufRef:
		var buf string
		switch b := r.Buf.(type) {
		case CBufBinding:
			buf = fmt.Sprintf("%#x", uint8(b))
		case CBufBindlessSSA:
			buf = b.Handle.String()
		case CBufBindlessGPR:
			buf = b.Handle.String()
		}
		return fmt.Sprintf("c[%s][%#x]", buf, r.Offset)
	case SSARef:
		return r.String()
	case RegRef:
		return r.String()
	default:
		return "<?>"
	}
}

// FormatDeps renders scheduling control bits.
func FormatDeps(d InstrDeps) string {
	parts := []string{fmt.Sprintf("delay=%d", d.Delay)}
	if d.WrBar >= 0 {
		parts = append(parts, fmt.Sprintf("wr=%d", d.WrBar))
	}
	if d.RdBar >= 0 {
		parts = append(parts, fmt.Sprintf("rd=%d", d.RdBar))
	}
	if d.WaitMask != 0 {
		parts = append(parts, fmt.Sprintf("wait=%#x", d.WaitMask))
	}
	if d.ReuseMask != 0 {
		parts = append(parts, fmt.Sprintf("reuse=%#x", d.ReuseMask))
	}
	if d.Yield {
		parts = append(parts, "yield")
	}
	return "{" + strings.Join(parts, " ") + "}"
}
