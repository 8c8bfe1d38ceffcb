package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"texforge/internal/backend"
	"texforge/internal/errors"
	"texforge/internal/graph"
	"texforge/internal/material"
	"texforge/internal/report"
)

// BuildGraphs turns descriptors into in-memory material graphs. Descriptors
// without channels are reported, not fatal.
func (e *Engine) BuildGraphs(descs []*material.Descriptor) ([]*graph.MaterialGraph, []report.Diagnostic) {
	var graphs []*graph.MaterialGraph
	var diags []report.Diagnostic
	for _, d := range descs {
		g, err := graph.Build(d)
		if err != nil {
			diags = append(diags, report.Diagnostic{
				Severity: report.SeverityError,
				Code:     errors.GraphAssemblyFailed,
				Message:  err.Error(),
				Material: d.Name,
				Scope:    d.MeshScope,
			})
			continue
		}
		graphs = append(graphs, g)
	}
	return graphs, diags
}

// Materialize runs a full scan-and-build batch against the backend and
// blocks until every material has been attempted. A failed material aborts
// only itself; the batch continues. Cancellation is honored between
// materials, never mid-material, so no graph is left half-wired.
func (e *Engine) Materialize(ctx context.Context, root string, sg backend.SceneGraph, policy graph.Policy) (*report.BatchReport, error) {
	out, err := e.Scan(ctx, root)
	if err != nil {
		return nil, err
	}

	rep := report.NewBatchReport(uuid.NewString(), out.Root)
	rep.Diagnostics = append(rep.Diagnostics, out.Diagnostics...)

	graphs, buildDiags := e.BuildGraphs(out.Descriptors)
	rep.Diagnostics = append(rep.Diagnostics, buildDiags...)

	m := graph.NewMaterializer(sg, graph.Options{
		Prefix:           e.cfg.Assembler.MaterialPrefix,
		GroupPerMaterial: e.cfg.Assembler.GroupPerMaterial,
		CallTimeout:      time.Duration(e.cfg.Assembler.CallTimeoutMs) * time.Millisecond,
		Logger:           e.logger,
	})

	for _, g := range graphs {
		if err := ctx.Err(); err != nil {
			rep.Fail(errors.GraphAssemblyFailed, "batch canceled", report.Diagnostic{})
			break
		}

		outcome, err := m.MaterializeWithPolicy(ctx, g, g.Descriptor.MeshScope, policy)
		if err != nil {
			rep.Fail(errors.CodeOf(err), err.Error(), report.Diagnostic{
				Material: g.Descriptor.Name,
				Scope:    g.Descriptor.MeshScope,
			})
			continue
		}

		if outcome.Existed {
			rep.Warn(errors.MaterialExists,
				fmt.Sprintf("material %q already existed, resolved by %s policy", outcome.MaterialName, policy),
				report.Diagnostic{Material: g.Descriptor.Name, Scope: g.Descriptor.MeshScope})
		}

		switch outcome.Status {
		case graph.StatusCreated:
			rep.Created = append(rep.Created, outcome.MaterialName)
		case graph.StatusSkipped:
			rep.Skipped = append(rep.Skipped, outcome.MaterialName)
		case graph.StatusRenamed:
			rep.Renamed = append(rep.Renamed, outcome.MaterialName)
		}
		e.logger.Info("material materialized", map[string]interface{}{
			"material": outcome.MaterialName,
			"scope":    g.Descriptor.MeshScope,
			"status":   string(outcome.Status),
		})
	}

	rep.Finish()
	if e.catalog != nil {
		if err := e.catalog.SaveRun(rep); err != nil {
			e.logger.Warn("catalog run save failed", map[string]interface{}{
				"run": rep.RunID, "error": err.Error(),
			})
		}
	}
	return rep, nil
}

// MaterializeAsync starts Materialize on a background goroutine and returns
// a channel that delivers the finished report. Errors surface as a report
// with a single fatal diagnostic so callers have one channel to watch.
func (e *Engine) MaterializeAsync(ctx context.Context, root string, sg backend.SceneGraph, policy graph.Policy) <-chan *report.BatchReport {
	done := make(chan *report.BatchReport, 1)
	go func() {
		rep, err := e.Materialize(ctx, root, sg, policy)
		if err != nil {
			rep = report.NewBatchReport(uuid.NewString(), root)
			rep.Fail(errors.CodeOf(err), err.Error(), report.Diagnostic{})
			rep.Finish()
		}
		done <- rep
	}()
	return done
}
