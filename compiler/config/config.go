// Package config holds the middle-end's only external configuration:
// which of the three logging toggles spec 6 names are active. Per spec
// 6 ("no other external configuration affects core behavior"), nothing
// else here influences what Compile produces.
package config

import "tlog.app/go/tlog"

// Config gates the block-by-block dumps compiler/format produces.
// Zero value disables all four.
type Config struct {
	Fullgen       bool // dump the graph as hirgen built it, before any opt pass
	DumpHIR       bool // dump the graph after optimization
	DumpLIR       bool // dump the flattened LIR
	DumpIntervals bool // append the interval-coverage visualization to the LIR dump
}

// ApplyFilter sets the process-wide tlog verbosity filter so the
// "dump_..." tr.If checks scattered through hirgen/opt/lower/back fire
// exactly for the toggles c enables, per spec 6 and
// back5.go's "dump_pkg"/"dump_func_before" filter-gated block style.
func (c Config) ApplyFilter() {
	var f string

	add := func(name string) {
		if f != "" {
			f += ","
		}

		f += name
	}

	if c.Fullgen {
		add("dump_fullgen")
	}

	if c.DumpHIR {
		add("dump_hir")
	}

	if c.DumpLIR {
		add("dump_lir")
	}

	if c.DumpIntervals {
		add("dump_intervals")
	}

	tlog.SetVerbosity(f)
}
