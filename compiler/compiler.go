package compiler

import (
	"context"

	"github.com/nikandfor/errors"
	"tlog.app/go/tlog"

	"github.com/konteck/candor/compiler/ast"
	"github.com/konteck/candor/compiler/back"
	"github.com/konteck/candor/compiler/config"
	"github.com/konteck/candor/compiler/dom"
	"github.com/konteck/candor/compiler/format"
	"github.com/konteck/candor/compiler/hir"
	"github.com/konteck/candor/compiler/lir"
	"github.com/konteck/candor/compiler/lower"
	"github.com/konteck/candor/compiler/opt"
)

// Result is one function's fully allocated LIR, ready for a target-
// specific assembler (out of scope here, per spec 1).
type Result struct {
	Func *lir.Func
}

// Compile runs the whole pipeline over every function hir.Build returns
// for top (top alone, since hir.Build builds no nested function literals),
// returning one Result per function in that order.
func Compile(ctx context.Context, c config.Config, top *ast.Function) (_ []Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile")
	defer tr.Finish("err", &err)

	c.ApplyFilter()

	g, err := hir.Build(ctx, top)
	if err != nil {
		return nil, errors.Wrap(err, "build hir")
	}

	results := make([]Result, 0, len(g.Funcs))

	for _, fn := range g.Funcs {
		if tr.If("dump_fullgen") {
			tr.Printw("fullgen", "func", fn.Name, "dump", string(format.Fullgen(nil, fn)))
		}

		lf, err := compileFunc(ctx, c, fn)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", fn.Name)
		}

		results = append(results, Result{Func: lf})
	}

	return results, nil
}

func compileFunc(ctx context.Context, c config.Config, fn *hir.Func) (_ *lir.Func, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile func", "name", fn.Name)
	defer tr.Finish("err", &err)

	roots := []*hir.Block{fn.Root}

	dom.Build(roots)

	opt.PrunePhis(fn)
	opt.DCE(fn)
	opt.AnalyzeEffects(fn)
	opt.GVN(fn)
	opt.GCM(fn)
	opt.DCE(fn)

	if tr.If("dump_hir") {
		tr.Printw("hir", "func", fn.Name, "dump", string(format.HIR(nil, fn)))
	}

	lf, err := lower.Lower(fn)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	sets := back.ComputeLocalLiveSets(lf)
	back.ComputeGlobalLiveSets(lf, sets)

	intervalByID := back.IntervalIndex(lf)
	back.BuildIntervals(lf, sets, intervalByID)

	alloc := back.NewAllocator(lf)
	if err := alloc.Run(); err != nil {
		return nil, errors.Wrap(err, "linear scan")
	}

	back.AllocateSpills(lf)
	back.ResolveDataFlow(lf, intervalByID)

	if tr.If("dump_lir") {
		dump := format.LIR(nil, lf)

		if tr.If("dump_intervals") {
			dump = format.IntervalMap(dump, lf)
		}

		tr.Printw("lir", "func", lf.Name, "dump", string(dump))
	}

	return lf, nil
}
