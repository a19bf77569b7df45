package engine

import "fmt"

// Failure kinds recorded in a sermon's error info and task outcomes.
const (
	KindSourceUnavailable       = "SOURCE_UNAVAILABLE"
	KindTranscriptionFailed     = "TRANSCRIPTION_FAILED"
	KindTranscriptTooShort      = "TRANSCRIPT_TOO_SHORT"
	KindTransientStepFailure    = "TRANSIENT_STEP_FAILURE"
	KindNoStructuredOutput      = "NO_STRUCTURED_OUTPUT"
	KindInvalidStructuredOutput = "INVALID_STRUCTURED_OUTPUT"
	KindPersistenceFailure      = "PERSISTENCE_FAILURE"
)

// StepError wraps an error with the pipeline step that failed, its failure
// kind, and how many attempts were made.
type StepError struct {
	Step     string
	Kind     string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Err.Error())
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepName returns the name of the failed step.
func (e *StepError) StepName() string {
	return e.Step
}
