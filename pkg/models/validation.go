package models

// ValidationResult is the uniform outcome of every validation step.
// Valid is false iff Errors is non-empty; warnings never block.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// NewValidationResult returns a passing result with no findings.
func NewValidationResult() ValidationResult {
	return ValidationResult{Valid: true}
}

// AddError records a blocking violation and flips Valid to false.
func (r *ValidationResult) AddError(message string) {
	r.Errors = append(r.Errors, message)
	r.Valid = false
}

// AddWarning records an advisory finding. Valid is unaffected.
func (r *ValidationResult) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}
