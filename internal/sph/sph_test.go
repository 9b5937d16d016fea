package sph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"nakgo/internal/bitview"
	"nakgo/internal/ir"
)

func field(words []uint32, lo, hi int) uint64 {
	return bitview.New(words).GetBitRange(lo, hi)
}

func TestComputeIsZero(t *testing.T) {
	got := Encode(ir.ShaderInfo{SM: 75, TLSSize: 64})
	if diff := cmp.Diff(make([]uint32, TuringSize), got); diff != "" {
		t.Fatalf("compute header (-want +got):\n%s", diff)
	}
	if n := len(Encode(ir.ShaderInfo{SM: 50})); n != FermiSize {
		t.Fatalf("sm 50 header has %d words, want %d", n, FermiSize)
	}
}

func TestVertexHeader(t *testing.T) {
	info := ir.ShaderInfo{
		SM:      75,
		TLSSize: 20,
		Stage: ir.StageInfo{
			Stage:           ir.StageVertex,
			InputsRead:      0b101,
			OutputsWritten:  0b10,
			WritesPosition:  true,
			WritesPointSize: true,
			UsesFP64:        true,
		},
	}
	h := Encode(info)
	tests := []struct {
		name   string
		lo, hi int
		want   uint64
	}{
		{"sph type", 0, 5, 1},
		{"version", 5, 10, 3},
		{"shader type", 10, 14, 1},
		{"sass version", 17, 21, 1},
		{"load or store", 26, 27, 1},
		{"fp64", 27, 28, 1},
		{"local memory", 32, 56, 32},
		{"input 0", 192, 196, 0xf},
		{"input 1", 196, 200, 0},
		{"input 2", 200, 204, 0xf},
		{"output 1", 436, 440, 0xf},
		{"position", 400 + sysPosition, 400 + sysPosition + 4, 0xf},
		{"point size", 400 + sysPointSize, 400 + sysPointSize + 1, 1},
		{"layer", 400 + sysLayer, 400 + sysLayer + 1, 0},
	}
	for _, tt := range tests {
		if got := field(h, tt.lo, tt.hi); got != tt.want {
			t.Errorf("%s = %#x, want %#x", tt.name, got, tt.want)
		}
	}
}

func TestFragmentHeader(t *testing.T) {
	info := ir.ShaderInfo{
		SM: 70,
		Stage: ir.StageInfo{
			Stage:          ir.StageFragment,
			InputsRead:     0b11,
			FlatInputs:     0b10,
			ReadsFragCoord: true,
			WritesColor:    0xff,
			WritesDepth:    true,
			UsesKill:       true,
		},
	}
	h := Encode(info)
	if len(h) != FermiSize {
		t.Fatalf("sm 70 header has %d words", len(h))
	}
	tests := []struct {
		name   string
		lo, hi int
		want   uint64
	}{
		{"sph type", 0, 5, 2},
		{"shader type", 10, 14, 5},
		{"mrt", 14, 15, 1},
		{"kills pixels", 15, 16, 1},
		{"sass version", 17, 21, 0},
		{"frag coord", 160 + sysPosition, 160 + sysPosition + 4, 0xf},
		{"smooth input", 192, 200, 0xaa},
		{"flat input", 200, 208, 0x55},
		{"targets", 576, 608, 0xff},
		{"sample mask", 608, 609, 0},
		{"depth", 609, 610, 1},
	}
	for _, tt := range tests {
		if got := field(h, tt.lo, tt.hi); got != tt.want {
			t.Errorf("%s = %#x, want %#x", tt.name, got, tt.want)
		}
	}
}

func TestTessCtrlPatchAttrs(t *testing.T) {
	h := Encode(ir.ShaderInfo{
		SM: 75,
		Stage: ir.StageInfo{
			Stage:          ir.StageTessCtrl,
			PatchAttrs:     0x23,
			ThreadsPerPrim: 4,
			OutputsWritten: 0b0110,
		},
	})
	if got := field(h, 96+28, 96+32); got != 0x3 {
		t.Fatalf("patch attrs low = %#x", got)
	}
	if got := field(h, 128+20, 128+24); got != 0x2 {
		t.Fatalf("patch attrs high = %#x", got)
	}
	if got := field(h, 64+24, 64+32); got != 4 {
		t.Fatalf("threads per primitive = %d", got)
	}
	if start, end := field(h, 128+12, 128+20), field(h, 128+24, 128+32); start != 1 || end != 2 {
		t.Fatalf("store req = [%d, %d], want [1, 2]", start, end)
	}
}

func TestTessCtrlStoreReqBounds(t *testing.T) {
	tests := []struct {
		written    uint32
		start, end uint64
	}{
		{0, 0, 0},
		{1, 0, 0},
		{1 << 31, 31, 31},
		{0x80000001, 0, 31},
	}
	for _, tt := range tests {
		h := Encode(ir.ShaderInfo{
			SM:    75,
			Stage: ir.StageInfo{Stage: ir.StageTessCtrl, OutputsWritten: tt.written},
		})
		if start, end := field(h, 128+12, 128+20), field(h, 128+24, 128+32); start != tt.start || end != tt.end {
			t.Errorf("outputs %#x: store req = [%d, %d], want [%d, %d]", tt.written, start, end, tt.start, tt.end)
		}
	}
}

func TestGeometryHeader(t *testing.T) {
	h := Encode(ir.ShaderInfo{
		SM: 75,
		Stage: ir.StageInfo{
			Stage:             ir.StageGeometry,
			ThreadsPerPrim:    1,
			OutputTopology:    ir.TopologyTriangleStrip,
			MaxOutputVertices: 12,
			StreamsWritten:    0x3,
		},
	})
	if got := field(h, 96+24, 96+28); got != 7 {
		t.Fatalf("topology = %d", got)
	}
	if got := field(h, 128, 128+12); got != 12 {
		t.Fatalf("max vertices = %d", got)
	}
	if got := field(h, 28, 32); got != 0x3 {
		t.Fatalf("stream mask = %#x", got)
	}
}

func TestTooManyOutputVertices(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	Encode(ir.ShaderInfo{SM: 75, Stage: ir.StageInfo{Stage: ir.StageGeometry, MaxOutputVertices: 0x1000}})
}
