package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/core/chunk"
	"github.com/joseph-ayodele/ddr-generator/internal/core/findings"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
	"github.com/joseph-ayodele/ddr-generator/internal/core/merge"
	"github.com/joseph-ayodele/ddr-generator/internal/core/pdftext"
	"github.com/joseph-ayodele/ddr-generator/internal/core/render"
	"github.com/joseph-ayodele/ddr-generator/internal/core/report"
	"github.com/joseph-ayodele/ddr-generator/internal/export"
)

// DefaultStages builds the production stages around client.
func DefaultStages(cfg *common.Config, client llm.Client, logger *slog.Logger) Stages {
	s := Stages{
		Text:    pdftext.NewExtractor(logger),
		Chunker: chunk.New(chunk.WithChunkSize(cfg.Pipeline.ChunkSize)),
		Findings: findings.NewExtractor(client, findings.Config{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			CallTimeout: cfg.LLM.Timeout,
			Concurrency: cfg.LLM.Concurrency,
		}, logger),
		Merger: merge.NewMerger(logger, merge.WithSimilarity(cfg.Pipeline.MergeSimilarity)),
		Composer: report.NewComposer(client, report.Config{
			Temperature: cfg.LLM.ReportTemperature,
			MaxTokens:   cfg.LLM.ReportMaxTokens,
			CallTimeout: cfg.LLM.ReportTimeout,
		}, logger),
		Renderer: render.NewRenderer(logger),
	}
	if cfg.Pipeline.ExportXLSX {
		s.Exporter = export.NewWorkbookExporter(logger)
	}
	return s
}

// NewFromConfig wires an orchestrator from configuration.
func NewFromConfig(cfg *common.Config, client llm.Client, logger *slog.Logger) *Orchestrator {
	return NewOrchestrator(DefaultStages(cfg, client, logger), Options{
		Deadline:     cfg.Pipeline.WorkflowTimeout,
		OutputDir:    cfg.Pipeline.OutputDir,
		MaxPDFSizeMB: cfg.Pipeline.MaxPDFSizeMB,
	}, logger)
}
