package domain

type ErrorType string

const (
	ErrorInvalidCitation ErrorType = "invalid_citation"
	ErrorFutureDate      ErrorType = "future_date"
	ErrorHallucination   ErrorType = "hallucination"
)

type WarningType string

const (
	WarningMissingCitation    WarningType = "missing_citation"
	WarningLowCitationDensity WarningType = "low_citation_density"
	WarningUngroundedLawRef   WarningType = "ungrounded_law_reference"
	WarningUngroundedDate     WarningType = "ungrounded_date"
	WarningUngroundedCourt    WarningType = "ungrounded_court"
	WarningPoorGrounding      WarningType = "poor_grounding"
	WarningMissingDisclaimer  WarningType = "missing_disclaimer"
	WarningValidationFailure  WarningType = "validation_failure"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ValidationError is a hard finding: the answer must not ship as-is.
type ValidationError struct {
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Location int       `json:"location,omitempty"`
	Details  string    `json:"details,omitempty"`
}

// ValidationWarning is a soft finding, tolerated up to a configured count.
type ValidationWarning struct {
	Type     WarningType `json:"type"`
	Message  string      `json:"message"`
	Severity Severity    `json:"severity"`
	Details  string      `json:"details,omitempty"`
}

type ValidationResult struct {
	IsValid  bool                `json:"is_valid"`
	Answer   string              `json:"answer"`
	Errors   []ValidationError   `json:"errors,omitempty"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}
