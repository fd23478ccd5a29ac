package wizard

import (
	"errors"

	"luxespace/internal/pipeline"
)

// Step is one screen of the wizard.
type Step string

const (
	StepIntro     Step = "INTRO"
	StepForm      Step = "FORM"
	StepAnalyzing Step = "ANALYZING"
	StepResult    Step = "RESULT"
	StepUnlock    Step = "UNLOCK"
)

var (
	ErrInvalidTransition = errors.New("wizard: transition not allowed from current step")
	ErrInvalidForm       = errors.New("wizard: form has missing required fields")
	// ErrRunDiscarded is returned by Submit when a reset happened while the
	// analysis was in flight; its outcome was dropped.
	ErrRunDiscarded = errors.New("wizard: analysis outcome discarded after reset")
)

const (
	msgAnalysisFailed = "Không thể phân tích ảnh lúc này. Vui lòng thử lại."
	msgGenericFailure = "Đã có lỗi xảy ra. Vui lòng thử lại."
)

// UserMessage maps a pipeline error to the banner text shown on the form.
func UserMessage(err error) string {
	var aErr *pipeline.AnalysisError
	if errors.As(err, &aErr) {
		return msgAnalysisFailed
	}
	return msgGenericFailure
}
