package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a SQL-injection pattern detected in a
// user-supplied prompt.
type InjectionCheckResult struct {
	IsSQLi      bool   // true if a SQL injection pattern was detected
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckPromptForInjection runs libinjection over the raw user prompt.
// The guard's denylist remains the gate; this is a defense-in-depth
// signal surfaced as a warning so operators can spot probing attempts.
//
// Returns nil when no injection pattern is detected.
func CheckPromptForInjection(prompt string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(prompt)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
	}
}
