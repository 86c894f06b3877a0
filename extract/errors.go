package extract

import "fmt"

// Phase names the extraction step that failed.
type Phase string

// Extraction phases.
const (
	PhaseConstitution Phase = "constitution"
	PhaseFeatures     Phase = "features"
	PhasePlans        Phase = "plans"
)

// ExtractionError reports that a document lacks the structure an extraction
// phase needs.
type ExtractionError struct {
	Phase Phase
	// Message describes what could not be found.
	Message string
	// Remediation tells the author how to fix the input.
	Remediation string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Phase, e.Message)
}
