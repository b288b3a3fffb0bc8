// Package report composes the narrative DDR from merged findings.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

// Title heads every report.
const Title = "Detailed Diagnostic Report (DDR)"

type Config struct {
	Temperature float32
	MaxTokens   int
	CallTimeout time.Duration
}

// Input is what a report is composed from.
type Input struct {
	Merged         entity.MergedFindingSet
	InspectionFile string
	ThermalFile    string
}

// Composer makes one model call per report.
type Composer struct {
	client llm.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewComposer(client llm.Client, cfg Config, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 10000
	}
	return &Composer{client: client, cfg: cfg, logger: logger, now: time.Now}
}

// Compose returns the report or a ReportCompositionError. When ctx itself ends,
// its error is returned unwrapped.
func (c *Composer) Compose(ctx context.Context, in Input) (*entity.DdrReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.cfg.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
	}
	defer cancel()

	raw, err := llm.Call(callCtx, c.client, llm.Request{
		System:      BuildSystemPrompt(),
		Prompt:      BuildUserPrompt(in.Merged),
		Schema:      responseSchema,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("report.compose.unavailable", "error", err)
		return nil, common.NewReportCompositionError(c.unavailable(err))
	}

	var resp reportResponse
	dec, err := llm.DecodeStructured(raw, responseSchema, Sanitize, &resp)
	if err != nil {
		c.logger.Warn("report.compose.malformed", "raw_len", len(raw), "error", err)
		return nil, common.NewReportCompositionError(err)
	}

	rep := c.build(in, resp)
	c.logger.Info("report.compose.ok",
		"areas", len(rep.Observations),
		"actions", len(rep.Actions),
		"repairs", dec.Applied,
		"dropped", dec.Dropped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rep, nil
}

func (c *Composer) unavailable(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewLLMUnavailableError(fmt.Sprintf("report call: no response within %s", c.cfg.CallTimeout), err)
	case llm.IsRateLimited(err):
		return common.NewLLMUnavailableError("report call: rate limit or quota exceeded, retry later", err)
	default:
		return common.NewLLMUnavailableError("report call failed", err)
	}
}

func (c *Composer) build(in Input, resp reportResponse) *entity.DdrReport {
	rep := &entity.DdrReport{
		Title:           Title,
		Summary:         resp.Summary,
		Observations:    make([]entity.AreaObservation, 0, len(resp.AreaObservations)),
		RootCause:       strings.TrimSpace(resp.ProbableRootCause),
		Severity:        make([]entity.SeverityEntry, 0, len(resp.SeverityAssessment)),
		Actions:         nonEmpty(resp.RecommendedActions),
		AdditionalNotes: nonEmpty(resp.AdditionalNotes),
		MissingInfo:     union(resp.MissingInformation, in.Merged.MissingInfo),
		GeneratedAt:     c.now(),
		InspectionFile:  in.InspectionFile,
		ThermalFile:     in.ThermalFile,
		Merged:          in.Merged,
	}
	if rep.RootCause == "" {
		rep.RootCause = RootCauseFallback
	}
	for _, o := range resp.AreaObservations {
		rep.Observations = append(rep.Observations, entity.AreaObservation{
			Area:               o.Area,
			InspectionFindings: nonEmpty(o.InspectionFindings),
			ThermalFindings:    nonEmpty(o.ThermalFindings),
			Analysis:           o.Analysis,
		})
	}
	for _, s := range resp.SeverityAssessment {
		level, _ := constants.CanonicalSeverity(s.Severity)
		rep.Severity = append(rep.Severity, entity.SeverityEntry{Area: s.Area, Severity: level, Reasoning: s.Reasoning})
	}
	return rep
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// union keeps a's order and appends notes from b not already present.
func union(a, b []string) []string {
	out := nonEmpty(a)
	seen := make(map[string]struct{}, len(out))
	for _, s := range out {
		seen[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range nonEmpty(b) {
		if _, ok := seen[strings.ToLower(s)]; ok {
			continue
		}
		seen[strings.ToLower(s)] = struct{}{}
		out = append(out, s)
	}
	return out
}
