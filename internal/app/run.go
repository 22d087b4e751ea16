// Package app runs a program under coverage and writes the report.
package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/stepcov/internal/config"
	"github.com/dshills/stepcov/internal/coverage"
	"github.com/dshills/stepcov/internal/engine/lua"
	"github.com/dshills/stepcov/internal/interrupt"
	"github.com/dshills/stepcov/internal/logging"
)

// Result describes one coverage run.
type Result struct {
	// Script is the evaluated program.
	Script string
	// Files lists the covered sources in first-seen order.
	Files []string
	// Tracefiles lists the tracefiles written.
	Tracefiles []string
	// Found and Hit total the executable and executed lines.
	Found, Hit int
	// EvalErr is the evaluation error, if the program failed. The report is
	// still written.
	EvalErr error
	// Duration is the wall time of the run.
	Duration time.Duration
}

// Percent returns the line coverage ratio as a percentage.
func (r *Result) Percent() float64 {
	if r.Found == 0 {
		return 0
	}
	return 100 * float64(r.Hit) / float64(r.Found)
}

// Run evaluates script under coverage and writes the tracefiles described by
// cfg. Only setup and reporting failures are returned as errors.
func Run(ctx context.Context, cfg config.Config, script string) (*Result, error) {
	if script == "" {
		return nil, ErrNoScript
	}
	start := time.Now()
	log := logging.WithComponent(logging.Get(), "app")

	covOpts := []coverage.Option{
		coverage.WithFilter(coverage.NewFilter(cfg.Include, cfg.Exclude)),
		coverage.WithLogger(logging.WithComponent(logging.Get(), "coverage")),
	}
	if s := cfg.Syntax; s != "" && !strings.EqualFold(s, "auto") {
		sx, err := coverage.SyntaxByName(s)
		if err != nil {
			return nil, &OperationError{Op: "select syntax", Err: err}
		}
		covOpts = append(covOpts, coverage.WithSyntax(sx))
	}

	eng, err := lua.New(
		lua.WithSearchPath(cfg.SearchPath),
		lua.WithArgs(cfg.Args),
		lua.WithContext(ctx),
		lua.WithLogger(logging.WithComponent(logging.Get(), "engine")),
	)
	if err != nil {
		return nil, &OperationError{Op: "start engine", Err: err}
	}
	defer eng.Close()

	reg := interrupt.New(eng, interrupt.WithLogger(logging.WithComponent(logging.Get(), "interrupt")))
	cov := coverage.New(reg, covOpts...)

	res := &Result{Script: script}
	if err := eng.DoFile(script); err != nil {
		log.Error("evaluation failed", zap.String("script", script), zap.Error(err))
		res.EvalErr = err
	}

	cov.Close()
	if err := reg.Close(); err != nil {
		log.Warn("register still has subscribers", zap.Error(err))
	}
	if err := eng.Close(); err != nil {
		return nil, &OperationError{Op: "stop engine", Err: err}
	}

	if err := report(cfg, cov, res); err != nil {
		return res, err
	}
	res.Duration = time.Since(start)
	log.Info("coverage written",
		zap.Int("files", len(res.Files)),
		zap.Int("lines_found", res.Found),
		zap.Int("lines_hit", res.Hit),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

func report(cfg config.Config, cov *coverage.Coverage, res *Result) error {
	res.Files = cov.Files()
	for _, f := range res.Files {
		stats, _ := cov.Stats(f)
		res.Found += stats.Found()
		res.Hit += stats.Hit()
	}

	w, err := coverage.NewTracefileWriter(cfg.Output)
	if err != nil {
		return &OperationError{Op: "open tracefile", Target: cfg.Output, Err: err}
	}
	if err := w.Write(cov); err != nil {
		w.Close()
		return &OperationError{Op: "write tracefile", Target: cfg.Output, Err: err}
	}
	if err := w.Close(); err != nil {
		return &OperationError{Op: "close tracefile", Target: cfg.Output, Err: err}
	}
	res.Tracefiles = w.Written()

	if cfg.Summary != "" {
		if err := cov.WriteSummary(cfg.Summary); err != nil {
			return &OperationError{Op: "write summary", Target: cfg.Summary, Err: err}
		}
	}
	return nil
}
