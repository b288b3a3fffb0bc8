package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/ddr-generator/internal/core/llm/provider"
	"github.com/joseph-ayodele/ddr-generator/internal/core/pipeline"
)

var (
	inspectionPath string
	thermalPath    string
	outDir         string
	noXLSX         bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a DDR PDF from an inspection and a thermal report",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&inspectionPath, "inspection", "", "inspection report PDF")
	generateCmd.Flags().StringVar(&thermalPath, "thermal", "", "thermal report PDF")
	generateCmd.Flags().StringVar(&outDir, "out", "", "output directory (defaults to OUTPUT_DIR)")
	generateCmd.Flags().BoolVar(&noXLSX, "no-xlsx", false, "skip the workbook export")
	_ = generateCmd.MarkFlagRequired("inspection")
	_ = generateCmd.MarkFlagRequired("thermal")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if outDir != "" {
		cfg.Pipeline.OutputDir = outDir
	}
	if noXLSX {
		cfg.Pipeline.ExportXLSX = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, closeClient, err := provider.New(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeClient() }()

	orch := pipeline.NewFromConfig(cfg, client, logger)
	run, err := orch.Start(ctx, inspectionPath, thermalPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Title.Render("DDR generation"), styles.Muted.Render(run.ID))
	for ev := range run.Events() {
		printEvent(out, ev)
	}

	res, err := run.Wait(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, styles.Success.Render("Report written:"), res.OutputPath)
	if res.XLSXPath != "" {
		fmt.Fprintln(out, styles.Muted.Render("Workbook:"), res.XLSXPath)
	}
	fmt.Fprintf(out, "%s %d unified, %d conflicts, %d gaps\n",
		styles.Muted.Render("Findings:"),
		len(res.Merged.Unified), len(res.Merged.Conflicts), len(res.Merged.Gaps))
	return nil
}

func printEvent(w io.Writer, ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventStageStarted:
		fmt.Fprintln(w, styles.Stage.Render("> "+string(ev.Stage)))
	case pipeline.EventChunkProgress:
		fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("  %s chunk %d/%d", ev.Source, ev.Done, ev.Total)))
	case pipeline.EventStageFailed:
		fmt.Fprintln(w, styles.Error.Render("x "+string(ev.Stage)))
	case pipeline.EventCancelled:
		fmt.Fprintln(w, styles.Warning.Render("cancelled during "+string(ev.Stage)))
	}
}
