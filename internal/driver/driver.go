// Package driver turns parsed shaders into machine code: it assembles the
// pass pipeline, runs it with panics converted into errors, builds the
// program header, and compiles batches concurrently behind an artifact
// cache.
package driver

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"nakgo/internal/diag"
	"nakgo/internal/encode"
	"nakgo/internal/ir"
	"nakgo/internal/legalize"
	"nakgo/internal/passes"
	"nakgo/internal/regalloc"
	"nakgo/internal/sched"
	"nakgo/internal/sph"
	"nakgo/internal/validate"
)

// Artifact is the compiled form of one shader.
type Artifact struct {
	Name    string   `msgpack:"name"`
	SM      uint8    `msgpack:"sm"`
	Stage   string   `msgpack:"stage"`
	NumGPRs uint8    `msgpack:"num_gprs"`
	TLSSize uint32   `msgpack:"tls_size"`
	Code    []uint32 `msgpack:"code"`
	Header  []uint32 `msgpack:"header"`
}

// Options controls a single compilation.
type Options struct {
	Mode sched.Mode
	// Dump, when not nil, receives the IR after every pass.
	Dump io.Writer
	// Stop ends the pipeline after the named pass; the artifact then has no
	// code.
	Stop     string
	Reporter *diag.Reporter
}

// Pipeline returns the pass sequence for mode. The returned encode pass
// holds the code once the pipeline has run.
func Pipeline(mode sched.Mode, reporter *diag.Reporter) (*passes.Manager, *encode.Pass) {
	enc := &encode.Pass{}
	m := passes.NewManager()
	m.Add(validate.Pass{Stage: validate.StageSSA, Reporter: reporter})
	m.Add(passes.CopyProp{})
	m.Add(passes.NewDeadCode())
	m.Add(legalize.Pass{})
	m.Add(validate.Pass{Stage: validate.StageLegal, Reporter: reporter})
	m.Add(regalloc.Pass{})
	m.Add(passes.LowerParCopies{})
	m.Add(passes.LowerCopySwap{})
	m.Add(validate.Pass{Stage: validate.StageRegs, Reporter: reporter})
	m.Add(sched.Pass{Mode: mode})
	m.Add(enc)
	return m, enc
}

// Compile runs the pipeline over shader, which it modifies in place. Panics
// raised by the compiler core are returned as errors.
func Compile(ctx context.Context, name string, shader *ir.Shader, opts Options) (art *Artifact, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "compile shader", "name", name, "sm", shader.Info.SM, "mode", opts.Mode)
	defer tr.Finish("err", &err)

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		tr.Printw("compiler panic", "panic", p, "stack", string(debug.Stack()))
		art, err = nil, errors.New("%s: internal compiler error: %v", name, p)
	}()

	m, enc := Pipeline(opts.Mode, opts.Reporter)
	m.AfterPass = func(pass string, s *ir.Shader) {
		tr.Printw("pass done", "pass", pass)
		if opts.Dump != nil {
			fmt.Fprintf(opts.Dump, "// after %s\n", pass)
			ir.Dump(s, opts.Dump)
		}
	}

	if opts.Stop != "" {
		err = m.RunUntil(shader, opts.Stop)
	} else {
		err = m.Run(shader)
	}
	if err != nil {
		return nil, errors.Wrap(err, "%s", name)
	}

	art = &Artifact{
		Name:    name,
		SM:      shader.Info.SM,
		Stage:   shader.Info.Stage.Stage.String(),
		NumGPRs: shader.Info.NumGPRs,
		TLSSize: shader.Info.TLSSize,
		Code:    enc.Code,
	}
	if opts.Stop == "" {
		art.Header = sph.Encode(shader.Info)
	}
	tr.Printw("compiled", "words", len(art.Code), "gprs", art.NumGPRs)
	return art, nil
}
