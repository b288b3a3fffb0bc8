// Package findings turns document chunks into structured findings through the LLM client.
package findings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/core/async"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

// Config controls the per-chunk calls.
type Config struct {
	Temperature float32
	MaxTokens   int
	CallTimeout time.Duration
	Concurrency int
}

// Progress is a best-effort report after each chunk completes.
type Progress struct {
	Source constants.SourceKind
	Done   int
	Total  int
}

// ProgressFunc receives Progress updates. It may be called from several goroutines.
type ProgressFunc func(Progress)

// Extractor runs the per-chunk extraction for one or more documents.
type Extractor struct {
	client llm.Client
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(client llm.Client, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Extractor{client: client, cfg: cfg, logger: logger}
}

type chunkResult struct {
	findings []entity.Finding
	missing  []string
}

// ExtractAll processes every chunk of every document through one bounded fan-out.
// Results come back in document order with findings in chunk order. The first
// failing chunk aborts the rest.
func (e *Extractor) ExtractAll(ctx context.Context, docs []*entity.SourceDocument, progress ProgressFunc) ([]entity.DocumentFindings, error) {
	results := make([][]chunkResult, len(docs))
	done := make([]int, len(docs))
	var mu sync.Mutex

	var tasks []async.Task
	for d, doc := range docs {
		d, doc := d, doc
		results[d] = make([]chunkResult, len(doc.Chunks))
		for _, ch := range doc.Chunks {
			ch := ch
			total := len(doc.Chunks)
			tasks = append(tasks, func(tctx context.Context) error {
				res, err := e.extractChunk(ctx, tctx, ch, total)
				if err != nil {
					return err
				}
				mu.Lock()
				results[d][ch.Index] = res
				done[d]++
				p := Progress{Source: doc.Kind, Done: done[d], Total: total}
				mu.Unlock()
				if progress != nil {
					progress(p)
				}
				return nil
			})
		}
	}

	pool := async.NewPool(e.logger,
		async.WithWorkers(e.cfg.Concurrency),
		async.WithTaskTimeout(e.cfg.CallTimeout),
	)
	if err := pool.Run(ctx, tasks); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	out := make([]entity.DocumentFindings, len(docs))
	for d, doc := range docs {
		df := entity.DocumentFindings{Source: doc.Kind, Findings: []entity.Finding{}}
		for _, r := range results[d] {
			df.Findings = append(df.Findings, r.findings...)
			df.MissingInfo = append(df.MissingInfo, r.missing...)
		}
		out[d] = df
		e.logger.Info("findings.document.ok",
			"source", doc.Kind,
			"chunks", len(doc.Chunks),
			"findings", len(df.Findings),
			"missing_info", len(df.MissingInfo),
		)
	}
	return out, nil
}

// Extract processes a single document.
func (e *Extractor) Extract(ctx context.Context, doc *entity.SourceDocument, progress ProgressFunc) (entity.DocumentFindings, error) {
	out, err := e.ExtractAll(ctx, []*entity.SourceDocument{doc}, progress)
	if err != nil {
		return entity.DocumentFindings{}, err
	}
	return out[0], nil
}

func (e *Extractor) extractChunk(parent, ctx context.Context, ch entity.Chunk, total int) (chunkResult, error) {
	if err := ctx.Err(); err != nil {
		return chunkResult{}, err
	}
	start := time.Now()
	req := llm.Request{
		System:      BuildSystemPrompt(),
		Prompt:      BuildUserPrompt(ch.Source, ch.Index, total, ch.Text),
		Schema:      responseSchema,
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	}

	raw, err := llm.Call(ctx, e.client, req)
	if err != nil {
		if parent.Err() != nil {
			return chunkResult{}, parent.Err()
		}
		return chunkResult{}, e.classify(ch, err)
	}

	var resp chunkResponse
	dec, err := llm.DecodeStructured(raw, responseSchema, Sanitize, &resp)
	if err != nil {
		e.logger.Warn("findings.chunk.malformed", "source", ch.Source, "chunk", ch.Index, "raw_len", len(raw), "error", err)
		return chunkResult{}, fmt.Errorf("%s chunk %d: %w", ch.Source, ch.Index, err)
	}

	res := chunkResult{missing: resp.MissingInfo}
	for _, r := range resp.Findings {
		sev, _ := constants.CanonicalSeverity(r.Severity)
		res.findings = append(res.findings, entity.Finding{
			Area:        r.Area,
			Description: r.Description,
			Severity:    sev,
			Source:      ch.Source,
			Evidence:    r.Evidence,
			RootCause:   r.RootCause,
			ChunkIndex:  ch.Index,
		})
	}

	e.logger.Info("findings.chunk.ok",
		"source", ch.Source,
		"chunk", ch.Index,
		"findings", len(res.findings),
		"repaired", len(dec.Applied) > 0,
		"repairs", dec.Applied,
		"dropped", dec.Dropped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) classify(ch entity.Chunk, err error) error {
	where := fmt.Sprintf("%s chunk %d", ch.Source, ch.Index)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.logger.Warn("findings.chunk.timeout", "source", ch.Source, "chunk", ch.Index, "timeout", e.cfg.CallTimeout)
		return common.NewLLMUnavailableError(fmt.Sprintf("%s: no response within %s", where, e.cfg.CallTimeout), err)
	case llm.IsRateLimited(err):
		e.logger.Warn("findings.chunk.rate_limited", "source", ch.Source, "chunk", ch.Index, "error", err)
		return common.NewLLMUnavailableError(where+": rate limit or quota exceeded, retry later", err)
	default:
		e.logger.Warn("findings.chunk.failed", "source", ch.Source, "chunk", ch.Index, "error", err)
		return common.NewLLMUnavailableError(where+": model call failed", err)
	}
}
