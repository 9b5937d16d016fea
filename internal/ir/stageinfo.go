package ir

// StageField binds a text directive to one field of StageInfo. Bool fields
// read back as 0 or 1.
type StageField struct {
	Name string
	Bool bool
	Get  func(*StageInfo) uint64
	Set  func(*StageInfo, uint64)
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func boolField(name string, p func(*StageInfo) *bool) StageField {
	return StageField{
		Name: name,
		Bool: true,
		Get:  func(s *StageInfo) uint64 { return b2u(*p(s)) },
		Set:  func(s *StageInfo, v uint64) { *p(s) = v != 0 },
	}
}

func u32Field(name string, p func(*StageInfo) *uint32) StageField {
	return StageField{
		Name: name,
		Get:  func(s *StageInfo) uint64 { return uint64(*p(s)) },
		Set:  func(s *StageInfo, v uint64) { *p(s) = uint32(v) },
	}
}

func u8Field(name string, p func(*StageInfo) *uint8) StageField {
	return StageField{
		Name: name,
		Get:  func(s *StageInfo) uint64 { return uint64(*p(s)) },
		Set:  func(s *StageInfo, v uint64) { *p(s) = uint8(v) },
	}
}

// StageFields lists the directives in the order Dump prints them. The stage
// and topology directives take names and are handled separately.
var StageFields = []StageField{
	u32Field("inputs_read", func(s *StageInfo) *uint32 { return &s.InputsRead }),
	u32Field("outputs_written", func(s *StageInfo) *uint32 { return &s.OutputsWritten }),
	u32Field("flat_inputs", func(s *StageInfo) *uint32 { return &s.FlatInputs }),
	boolField("reads_primitive_id", func(s *StageInfo) *bool { return &s.ReadsPrimitiveID }),
	boolField("reads_frag_coord", func(s *StageInfo) *bool { return &s.ReadsFragCoord }),
	boolField("writes_position", func(s *StageInfo) *bool { return &s.WritesPosition }),
	boolField("writes_point_size", func(s *StageInfo) *bool { return &s.WritesPointSize }),
	boolField("writes_layer", func(s *StageInfo) *bool { return &s.WritesLayer }),
	boolField("writes_viewport", func(s *StageInfo) *bool { return &s.WritesViewport }),
	u32Field("writes_color", func(s *StageInfo) *uint32 { return &s.WritesColor }),
	boolField("writes_sample_mask", func(s *StageInfo) *bool { return &s.WritesSampleMask }),
	boolField("writes_depth", func(s *StageInfo) *bool { return &s.WritesDepth }),
	boolField("uses_kill", func(s *StageInfo) *bool { return &s.UsesKill }),
	u8Field("patch_attrs", func(s *StageInfo) *uint8 { return &s.PatchAttrs }),
	u8Field("threads_per_prim", func(s *StageInfo) *uint8 { return &s.ThreadsPerPrim }),
	{
		Name: "max_output_vertices",
		Get:  func(s *StageInfo) uint64 { return uint64(s.MaxOutputVertices) },
		Set:  func(s *StageInfo, v uint64) { s.MaxOutputVertices = uint16(v) },
	},
	u8Field("streams_written", func(s *StageInfo) *uint8 { return &s.StreamsWritten }),
	boolField("global_store", func(s *StageInfo) *bool { return &s.UsesGlobalStore }),
	boolField("fp64", func(s *StageInfo) *bool { return &s.UsesFP64 }),
}

// LookupStageField finds a directive by name.
func LookupStageField(name string) (StageField, bool) {
	for _, f := range StageFields {
		if f.Name == name {
			return f, true
		}
	}
	return StageField{}, false
}
