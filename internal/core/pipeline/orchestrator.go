// Package pipeline drives one report generation run through its stages:
// text extraction, chunking, finding extraction, merging, report composition
// and PDF rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/core/findings"
	"github.com/joseph-ayodele/ddr-generator/internal/core/report"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

const tracerName = "github.com/joseph-ayodele/ddr-generator/internal/core/pipeline"

type TextExtractor interface {
	Extract(ctx context.Context, path string, kind constants.SourceKind) (*entity.SourceDocument, error)
}

type Chunker interface {
	Apply(doc *entity.SourceDocument)
}

type FindingExtractor interface {
	ExtractAll(ctx context.Context, docs []*entity.SourceDocument, progress findings.ProgressFunc) ([]entity.DocumentFindings, error)
}

type Merger interface {
	Merge(inspection, thermal entity.DocumentFindings) entity.MergedFindingSet
}

type Composer interface {
	Compose(ctx context.Context, in report.Input) (*entity.DdrReport, error)
}

type Renderer interface {
	Render(ctx context.Context, rep *entity.DdrReport, outPath string) error
}

// Exporter writes a secondary artifact next to the PDF. Its failures are logged only.
type Exporter interface {
	Export(ctx context.Context, rep *entity.DdrReport, outPath string) error
}

// Stages are the collaborators a run is made of. Exporter may be nil.
type Stages struct {
	Text     TextExtractor
	Chunker  Chunker
	Findings FindingExtractor
	Merger   Merger
	Composer Composer
	Renderer Renderer
	Exporter Exporter
}

// Options bound and place a run.
type Options struct {
	// Deadline spans every stage of a run.
	Deadline     time.Duration
	OutputDir    string
	MaxPDFSizeMB int
}

// Orchestrator admits one run at a time and moves it through the stages.
type Orchestrator struct {
	stages Stages
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
	slot   chan struct{}
	now    func() time.Time
}

func NewOrchestrator(stages Stages, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Deadline <= 0 {
		opts.Deadline = 300 * time.Second
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "./output"
	}
	if opts.MaxPDFSizeMB <= 0 {
		opts.MaxPDFSizeMB = constants.MaxPDFSizeMBDefault
	}
	return &Orchestrator{
		stages: stages,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		slot:   make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Start validates both inputs and launches a run. A second Start waits until
// the active run is terminal or ctx ends. Cancelling ctx cancels the run.
func (o *Orchestrator) Start(ctx context.Context, inspectionPath, thermalPath string) (*PipelineRun, error) {
	v := common.NewValidator()
	v.Field("inspection", inspectionPath, common.PDFInputRules(o.opts.MaxPDFSizeMB)...)
	v.Field("thermal", thermalPath, common.PDFInputRules(o.opts.MaxPDFSizeMB)...)
	if err := common.ValidateAndReturnError(v); err != nil {
		o.logger.Warn("pipeline.input.invalid", "error", err)
		return nil, err
	}

	select {
	case o.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	now := o.now()
	id := uuid.NewString()
	outPath := filepath.Join(o.opts.OutputDir, OutputName(inspectionPath, thermalPath, now))
	run := newRun(id, inspectionPath, thermalPath, outPath, now, now.Add(o.opts.Deadline))

	runCtx, cancel := context.WithTimeout(common.WithRunID(ctx, id), o.opts.Deadline)
	run.cancel = cancel

	go func() {
		defer func() { <-o.slot }()
		defer cancel()
		o.execute(runCtx, run)
	}()
	return run, nil
}

// Run starts a run and waits for it.
func (o *Orchestrator) Run(ctx context.Context, inspectionPath, thermalPath string) (Result, error) {
	run, err := o.Start(ctx, inspectionPath, thermalPath)
	if err != nil {
		return Result{}, err
	}
	go func() {
		for range run.Events() {
		}
	}()
	<-run.Done()
	return run.Wait(context.Background())
}

type stageStep struct {
	stage constants.Stage
	fn    func(ctx context.Context, run *PipelineRun) error
}

func (o *Orchestrator) steps() []stageStep {
	return []stageStep{
		{constants.StageExtractingText, o.extractText},
		{constants.StageChunking, o.chunk},
		{constants.StageExtractingFindings, o.extractFindings},
		{constants.StageMerging, o.merge},
		{constants.StageComposingReport, o.compose},
		{constants.StageRenderingPDF, o.render},
	}
}

func (o *Orchestrator) execute(ctx context.Context, run *PipelineRun) {
	logger := common.LoggerFromContext(ctx, o.logger)
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", run.ID),
		attribute.String("inspection", filepath.Base(run.InspectionPath)),
		attribute.String("thermal", filepath.Base(run.ThermalPath)),
	))
	defer span.End()

	logger.Info("pipeline.run.start",
		"inspection", run.InspectionPath,
		"thermal", run.ThermalPath,
		"deadline", o.opts.Deadline,
	)

	for _, step := range o.steps() {
		if ctx.Err() != nil || run.Cancelled() {
			run.abort()
			o.fail(ctx, run, step.stage, ctx.Err(), logger, span)
			return
		}
		run.setStage(step.stage)
		run.emit(Event{Kind: EventStageStarted, Stage: step.stage}, false)
		logger.Info("pipeline.stage.start", "stage", step.stage)

		start := time.Now()
		if err := o.runStage(ctx, run, step); err != nil {
			if run.abort() {
				o.fail(ctx, run, step.stage, err, logger, span)
				return
			}
			logger.Warn("pipeline.stage.late_error", "stage", step.stage, "error", err)
		}
		elapsed := time.Since(start)
		run.recordElapsed(step.stage, elapsed)
		run.emit(Event{Kind: EventStageCompleted, Stage: step.stage}, false)
		logger.Info("pipeline.stage.ok", "stage", step.stage, "elapsed_ms", elapsed.Milliseconds())
	}

	run.mu.Lock()
	res := run.result
	run.mu.Unlock()
	run.finish(constants.StageDone, nil, Event{Kind: EventDone, Stage: constants.StageDone, OutputPath: res.OutputPath}, o.now())
	span.SetStatus(codes.Ok, "")
	logger.Info("pipeline.run.done",
		"output", res.OutputPath,
		"elapsed_ms", time.Since(run.startedAt).Milliseconds(),
	)
}

// runStage abandons the stage as soon as ctx ends, even if the stage ignores ctx.
func (o *Orchestrator) runStage(ctx context.Context, run *PipelineRun, step stageStep) error {
	sctx, span := o.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String("stage", string(step.stage)),
	))
	defer span.End()

	errc := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				errc <- fmt.Errorf("stage %s panicked: %v", step.stage, p)
			}
		}()
		errc <- step.fn(sctx, run)
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// fail moves the run to its terminal state. A dead run ctx wins over the stage
// error: a deadline is a WorkflowTimeout, anything else a cancellation.
func (o *Orchestrator) fail(ctx context.Context, run *PipelineRun, stage constants.Stage, err error, logger *slog.Logger, span trace.Span) {
	now := o.now()
	ctxErr := ctx.Err()
	switch {
	case run.Cancelled() || errors.Is(ctxErr, context.Canceled):
		cerr := &common.StageError{Stage: stage, Err: common.NewCancelledError(stage)}
		run.finish(constants.StageCancelled, cerr, Event{Kind: EventCancelled, Stage: stage, Err: cerr}, now)
		span.SetStatus(codes.Error, "cancelled")
		logger.Warn("pipeline.run.cancelled", "stage", stage)
	case errors.Is(ctxErr, context.DeadlineExceeded):
		terr := &common.StageError{Stage: stage, Err: common.NewWorkflowTimeoutError(stage, ctxErr)}
		run.finish(constants.StageFailed, terr, Event{Kind: EventStageFailed, Stage: stage, Err: terr}, now)
		span.SetStatus(codes.Error, "deadline exceeded")
		logger.Error("pipeline.run.timeout", "stage", stage, "deadline", o.opts.Deadline)
	default:
		serr := &common.StageError{Stage: stage, Err: err}
		run.finish(constants.StageFailed, serr, Event{Kind: EventStageFailed, Stage: stage, Err: serr}, now)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("pipeline.run.failed", "stage", stage, "error", err)
	}
}

func (o *Orchestrator) extractText(ctx context.Context, run *PipelineRun) error {
	docs := make([]*entity.SourceDocument, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range []struct {
		path string
		kind constants.SourceKind
	}{
		{run.InspectionPath, constants.SourceInspection},
		{run.ThermalPath, constants.SourceThermal},
	} {
		i, in := i, in
		g.Go(func() error {
			doc, err := o.stages.Text.Extract(gctx, in.path, in.kind)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	run.docs = docs
	return nil
}

func (o *Orchestrator) chunk(ctx context.Context, run *PipelineRun) error {
	for _, doc := range run.docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.stages.Chunker.Apply(doc)
	}
	return nil
}

func (o *Orchestrator) extractFindings(ctx context.Context, run *PipelineRun) error {
	progress := func(p findings.Progress) {
		run.emit(Event{
			Kind:   EventChunkProgress,
			Stage:  constants.StageExtractingFindings,
			Source: p.Source,
			Done:   p.Done,
			Total:  p.Total,
		}, true)
	}
	out, err := o.stages.Findings.ExtractAll(ctx, run.docs, progress)
	if err != nil {
		return err
	}
	run.findings = out
	return nil
}

func (o *Orchestrator) merge(ctx context.Context, run *PipelineRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var insp, therm entity.DocumentFindings
	for _, df := range run.findings {
		if df.Source == constants.SourceThermal {
			therm = df
		} else {
			insp = df
		}
	}
	merged := o.stages.Merger.Merge(insp, therm)
	run.mu.Lock()
	run.result.Merged = merged
	run.mu.Unlock()
	return nil
}

func (o *Orchestrator) compose(ctx context.Context, run *PipelineRun) error {
	run.mu.Lock()
	merged := run.result.Merged
	run.mu.Unlock()

	rep, err := o.stages.Composer.Compose(ctx, report.Input{
		Merged:         merged,
		InspectionFile: run.InspectionPath,
		ThermalFile:    run.ThermalPath,
	})
	if err != nil {
		return err
	}
	run.mu.Lock()
	run.result.Report = rep
	run.mu.Unlock()
	return nil
}

// render stages the PDF and workbook under hidden names and publishes both in
// one commit. A run that ends first never leaves files at the final paths.
func (o *Orchestrator) render(ctx context.Context, run *PipelineRun) error {
	run.mu.Lock()
	rep := run.result.Report
	run.mu.Unlock()
	logger := common.LoggerFromContext(ctx, o.logger)

	pdfStage := stagingPath(run.OutputPath)
	staged := []string{pdfStage}
	defer func() {
		for _, p := range staged {
			_ = os.Remove(p)
		}
	}()
	if err := o.stages.Renderer.Render(ctx, rep, pdfStage); err != nil {
		return err
	}

	var xlsxPath, xlsxStage string
	if o.stages.Exporter != nil {
		xlsxPath = strings.TrimSuffix(run.OutputPath, filepath.Ext(run.OutputPath)) + ".xlsx"
		xlsxStage = stagingPath(xlsxPath)
		staged = append(staged, xlsxStage)
		if err := o.stages.Exporter.Export(ctx, rep, xlsxStage); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn("pipeline.export.failed", "path", xlsxPath, "error", err)
			xlsxPath = ""
		}
	}

	return run.commit(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Rename(pdfStage, run.OutputPath); err != nil {
			return common.NewRenderError(run.OutputPath, err)
		}
		if xlsxPath != "" {
			if err := os.Rename(xlsxStage, xlsxPath); err != nil {
				logger.Warn("pipeline.export.failed", "path", xlsxPath, "error", err)
				xlsxPath = ""
			}
		}
		run.mu.Lock()
		run.result.OutputPath = run.OutputPath
		run.result.XLSXPath = xlsxPath
		run.mu.Unlock()
		return nil
	})
}

// stagingPath is the hidden sibling an artifact is written to before commit.
func stagingPath(final string) string {
	return filepath.Join(filepath.Dir(final), "."+filepath.Base(final)+".pending")
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// OutputName builds DDR_<inspection>_<thermal>_<YYYYMMDD-HHMMSS>.pdf from the input names.
func OutputName(inspectionPath, thermalPath string, at time.Time) string {
	stem := func(p string) string {
		base := filepath.Base(p)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "_")
		if base == "" {
			return "input"
		}
		return base
	}
	return fmt.Sprintf("DDR_%s_%s_%s%s", stem(inspectionPath), stem(thermalPath), at.Format("20060102-150405"), "."+constants.PDFExtension)
}
