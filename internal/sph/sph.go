// Package sph builds the shader program header that the driver loads ahead of
// a graphics shader's code.
//
// The header is a fixed bit-packed record. Turing and later read 32 words;
// earlier generations read the first 20. Compute shaders carry no header
// content and encode as all zeroes.
package sph

import (
	"fmt"
	"math/bits"

	"fortio.org/safecast"

	"nakgo/internal/bitview"
	"nakgo/internal/ir"
)

const (
	FermiSize  = 20
	TuringSize = 32
	maxSize    = TuringSize

	sphVersion = 3
)

// Size returns the number of header words the given SM reads.
func Size(sm uint8) int {
	if sm >= 73 {
		return TuringSize
	}
	return FermiSize
}

// Per-component interpolation modes in the fragment input map.
const (
	imapUnused      = 0
	imapConstant    = 1
	imapPerspective = 2
)

// Bits of the system value words shared by the input and output maps.
const (
	sysPrimitiveID = 24
	sysLayer       = 25
	sysViewport    = 26
	sysPointSize   = 27
	sysPosition    = 28
)

// header wraps the backing words with field setters. Setters that only make
// sense for some stages panic when used on the others.
type header struct {
	words [maxSize]uint32
	v     bitview.View
	stage ir.ShaderStage
	sm    uint8
}

func newHeader(stage ir.ShaderStage, sm uint8) *header {
	h := &header{stage: stage, sm: sm}
	h.v = bitview.New(h.words[:])

	sphType := uint64(1)
	if stage == ir.StageFragment {
		sphType = 2
	}
	w0 := h.word(0)
	w0.SetField(0, 5, sphType)
	w0.SetField(5, 10, sphVersion)
	w0.SetField(10, 14, shaderType(stage))
	return h
}

func shaderType(s ir.ShaderStage) uint64 {
	switch s {
	case ir.StageVertex:
		return 1
	case ir.StageTessCtrl:
		return 2
	case ir.StageTessEval:
		return 3
	case ir.StageGeometry:
		return 4
	case ir.StageFragment:
		return 5
	default:
		panic(fmt.Sprintf("sph: %s shaders have no header", s))
	}
}

func (h *header) word(i int) bitview.View { return h.v.Subset(32*i, 32*(i+1)) }

func (h *header) fragment() bool { return h.stage == ir.StageFragment }

func (h *header) must(cond bool, field string) {
	if !cond {
		panic(fmt.Sprintf("sph: %s does not apply to %s shaders", field, h.stage))
	}
}

func (h *header) setLocalMemorySize(size uint64) {
	if size > 0xffffffffffff || size%0x10 != 0 {
		panic(fmt.Sprintf("sph: invalid local memory size %#x", size))
	}
	h.word(1).SetField(0, 24, size&0xffffff)
	h.word(2).SetField(0, 24, (size>>32)&0xffffff)
}

func (h *header) setPerPatchAttrCount(n uint8) {
	h.must(h.stage == ir.StageTessCtrl, "per-patch attribute count")
	// Maxwell split the field in two.
	if h.sm > 35 {
		h.word(3).SetField(28, 32, uint64(n&0xf))
		h.word(4).SetField(20, 24, uint64(n>>4))
	} else {
		h.word(1).SetField(24, 32, uint64(n))
	}
}

func (h *header) setOutputTopology(t ir.OutputTopology) {
	codes := [...]uint64{
		ir.TopologyPointList:     1,
		ir.TopologyLineStrip:     6,
		ir.TopologyTriangleStrip: 7,
	}
	h.word(3).SetField(24, 28, codes[t])
}

func (h *header) setMaxOutputVertices(n uint16) {
	if n > 0xfff {
		panic(fmt.Sprintf("sph: %d output vertices", n))
	}
	h.word(4).SetField(0, 12, uint64(n))
}

func (h *header) setStoreReq(start, end uint8) {
	h.word(4).SetField(12, 20, uint64(start))
	h.word(4).SetField(24, 32, uint64(end))
}

func (h *header) setImapVector(index int, val uint64) {
	if index >= 32 {
		panic(fmt.Sprintf("sph: input vector %d", index))
	}
	if h.fragment() {
		h.v.Subset(192, 448).SetField(index*8, (index+1)*8, val)
	} else {
		h.v.Subset(192, 320).SetField(index*4, (index+1)*4, val)
	}
}

func (h *header) setOmapVector(index int, val uint64) {
	h.must(!h.fragment(), "generic output map")
	if index >= 32 {
		panic(fmt.Sprintf("sph: output vector %d", index))
	}
	h.v.Subset(432, 560).SetField(index*4, (index+1)*4, val)
}

func (h *header) setImapSystemValuesAB(val uint32) { h.v.SetField(160, 192, uint64(val)) }

func (h *header) setOmapSystemValuesAB(val uint32) {
	h.must(!h.fragment(), "system value output map")
	h.v.SetField(400, 432, uint64(val))
}

func (h *header) setOmapTargets(val uint32) {
	h.must(h.fragment(), "render target map")
	h.v.SetField(576, 608, uint64(val))
}

func (h *header) setOmapSampleMask(on bool) {
	h.must(h.fragment(), "sample mask output")
	h.v.SetBit(608, on)
}

func (h *header) setOmapDepth(on bool) {
	h.must(h.fragment(), "depth output")
	h.v.SetBit(609, on)
}

// Encode returns the header for a shader with the given info, Size(info.SM)
// words long.
func Encode(info ir.ShaderInfo) []uint32 {
	out := make([]uint32, Size(info.SM))
	st := info.Stage
	if st.Stage == ir.StageCompute {
		return out
	}

	h := newHeader(st.Stage, info.SM)
	w0 := h.word(0)
	w0.SetBit(16, st.UsesGlobalStore)
	w0.SetBit(26, st.UsesGlobalStore || info.TLSSize > 0)
	w0.SetBit(27, st.UsesFP64)
	if info.SM >= 73 {
		// SASS version.
		w0.SetField(17, 21, 1)
	}
	h.setLocalMemorySize((uint64(info.TLSSize) + 0xf) &^ 0xf)

	var sysIn, sysOut uint32
	if st.ReadsPrimitiveID {
		sysIn |= 1 << sysPrimitiveID
	}

	switch st.Stage {
	case ir.StageFragment:
		w0.SetBit(14, st.WritesColor>>4 != 0)
		w0.SetBit(15, st.UsesKill)
		if st.ReadsFragCoord {
			sysIn |= 0xf << sysPosition
		}
		for i := range 32 {
			if st.InputsRead&(1<<i) == 0 {
				continue
			}
			mode := uint64(imapPerspective)
			if st.FlatInputs&(1<<i) != 0 {
				mode = imapConstant
			}
			// Same mode for all four components.
			h.setImapVector(i, mode*0x55)
		}
		h.setOmapTargets(st.WritesColor)
		h.setOmapSampleMask(st.WritesSampleMask)
		h.setOmapDepth(st.WritesDepth)
	default:
		for i := range 32 {
			if st.InputsRead&(1<<i) != 0 {
				h.setImapVector(i, 0xf)
			}
			if st.OutputsWritten&(1<<i) != 0 {
				h.setOmapVector(i, 0xf)
			}
		}
		if st.WritesPosition {
			sysOut |= 0xf << sysPosition
		}
		if st.WritesPointSize {
			sysOut |= 1 << sysPointSize
		}
		if st.WritesLayer {
			sysOut |= 1 << sysLayer
		}
		if st.WritesViewport {
			sysOut |= 1 << sysViewport
		}
		h.setOmapSystemValuesAB(sysOut)
	}
	h.setImapSystemValuesAB(sysIn)

	switch st.Stage {
	case ir.StageTessCtrl:
		h.setPerPatchAttrCount(st.PatchAttrs)
		h.word(2).SetField(24, 32, uint64(st.ThreadsPerPrim))
		// No store request without written outputs.
		end, endErr := safecast.Conv[uint8](bits.Len32(st.OutputsWritten) - 1)
		start, startErr := safecast.Conv[uint8](bits.TrailingZeros32(st.OutputsWritten))
		if endErr == nil && startErr == nil {
			h.setStoreReq(start, end)
		}
	case ir.StageGeometry:
		h.word(2).SetField(24, 32, uint64(st.ThreadsPerPrim))
		h.setOutputTopology(st.OutputTopology)
		h.setMaxOutputVertices(st.MaxOutputVertices)
		w0.SetField(28, 32, uint64(st.StreamsWritten))
	}

	copy(out, h.words[:])
	return out
}
