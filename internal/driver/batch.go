package driver

import (
	"context"
	"io"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
	"golang.org/x/sync/errgroup"

	"nakgo/internal/config"
	"nakgo/internal/diag"
	"nakgo/internal/frontend"
)

// Result pairs one input with its outcome. Exactly one of Artifact and Err
// is set.
type Result struct {
	Name     string
	Artifact *Artifact
	Err      error
	Cached   bool
}

// Batch compiles several shaders with shared settings.
type Batch struct {
	Config   config.Config
	Cache    *Cache
	Reporter *diag.Reporter
	// Dump receives per-pass IR when Config.Debug.Print is set. Output of
	// concurrent shaders interleaves unless Jobs is 1.
	Dump io.Writer
}

// CompileAll compiles every unit, at most Config.Jobs at a time, and returns
// results in input order. A failing shader does not stop the others; its
// error is reported and kept in its Result. The returned error is set only
// when ctx is cancelled.
func (b *Batch) CompileAll(ctx context.Context, units []*frontend.Unit) (_ []Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile batch", "shaders", len(units), "jobs", b.Config.Jobs)
	defer tr.Finish("err", &err)

	results := make([]Result, len(units))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.Config.Jobs, 1))

	for i, u := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.compileUnit(ctx, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, errors.Wrap(err, "batch")
	}

	for _, r := range results {
		if r.Err != nil {
			b.Reporter.Errorf("%v", r.Err)
		}
	}
	return results, nil
}

func (b *Batch) compileUnit(ctx context.Context, u *frontend.Unit) Result {
	mode := b.Config.SchedMode()
	res := Result{Name: u.Name}
	key := CacheKey(u.Source, u.Shader.Info.SM, mode)

	if art, ok, err := b.Cache.Get(key); err != nil {
		b.Reporter.Warnf("%s: ignoring cache entry: %v", u.Name, err)
	} else if ok {
		res.Artifact, res.Cached = art, true
		return res
	}

	opts := Options{Mode: mode, Reporter: b.Reporter}
	if b.Config.Debug.Print {
		opts.Dump = b.Dump
	}
	res.Artifact, res.Err = Compile(ctx, u.Name, u.Shader, opts)
	if res.Err != nil {
		return res
	}
	if err := b.Cache.Put(key, res.Artifact); err != nil {
		b.Reporter.Warnf("%s: caching failed: %v", u.Name, err)
	}
	return res
}
