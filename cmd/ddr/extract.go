package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/core/chunk"
	"github.com/joseph-ayodele/ddr-generator/internal/core/findings"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm/provider"
	"github.com/joseph-ayodele/ddr-generator/internal/core/pdftext"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

var findingsKind string

var extractCmd = &cobra.Command{
	Use:   "extract [pdf]",
	Short: "Print the page-marked text extracted from a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var findingsCmd = &cobra.Command{
	Use:   "findings [pdf]",
	Short: "Print the findings extracted from one report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFindings,
}

func init() {
	findingsCmd.Flags().StringVar(&findingsKind, "kind", string(constants.SourceInspection), "report kind: inspection or thermal")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(findingsCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	doc, err := readDocument(ctx, args[0], constants.SourceInspection)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
	return nil
}

func runFindings(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(findingsKind)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	doc, err := readDocument(ctx, args[0], kind)
	if err != nil {
		return err
	}
	chunk.New(chunk.WithChunkSize(cfg.Pipeline.ChunkSize)).Apply(doc)

	client, closeClient, err := provider.New(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeClient() }()

	ex := findings.NewExtractor(client, findings.Config{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		CallTimeout: cfg.LLM.Timeout,
		Concurrency: cfg.LLM.Concurrency,
	}, logger)
	progress := func(p findings.Progress) {
		cmd.PrintErrln(styles.Muted.Render(fmt.Sprintf("%s chunk %d/%d", p.Source, p.Done, p.Total)))
	}
	df, err := ex.Extract(ctx, doc, progress)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func readDocument(ctx context.Context, path string, kind constants.SourceKind) (*entity.SourceDocument, error) {
	v := common.NewValidator()
	v.Field("pdf", path, common.PDFInputRules(cfg.Pipeline.MaxPDFSizeMB)...)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	return pdftext.NewExtractor(logger).Extract(ctx, path, kind)
}

func parseKind(s string) (constants.SourceKind, error) {
	switch k := constants.SourceKind(strings.ToLower(strings.TrimSpace(s))); k {
	case constants.SourceInspection, constants.SourceThermal:
		return k, nil
	default:
		return "", common.NewInputValidationError(fmt.Sprintf("unknown report kind %q", s), common.ErrInvalidInput)
	}
}
