package constants

// Stage is a state of the report pipeline.
type Stage string

// Stable values; they appear in logs, events and error messages.
const (
	StageIdle               Stage = "IDLE"
	StageExtractingText     Stage = "EXTRACTING_TEXT"
	StageChunking           Stage = "CHUNKING"
	StageExtractingFindings Stage = "EXTRACTING_FINDINGS"
	StageMerging            Stage = "MERGING"
	StageComposingReport    Stage = "COMPOSING_REPORT"
	StageRenderingPDF       Stage = "RENDERING_PDF"
	StageDone               Stage = "DONE"
	StageCancelled          Stage = "CANCELLED"
	StageFailed             Stage = "FAILED"
)

// WorkStages lists the working stages in execution order.
var WorkStages = []Stage{
	StageExtractingText,
	StageChunking,
	StageExtractingFindings,
	StageMerging,
	StageComposingReport,
	StageRenderingPDF,
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageCancelled || s == StageFailed
}
