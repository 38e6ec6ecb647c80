package participant

import (
	"strings"
)

// DiagnosticClass groups free-form sync diagnostics.
type DiagnosticClass int

const (
	DiagnosticOK DiagnosticClass = iota
	DiagnosticPrivate
	DiagnosticInvalid
	DiagnosticError
)

// DiagnosticPendingVerification is attached to rows created by a roster import.
const DiagnosticPendingVerification = "Pending Verification"

var diagnosticNames = map[DiagnosticClass]string{
	DiagnosticOK:      "ok",
	DiagnosticPrivate: "private",
	DiagnosticInvalid: "invalid",
	DiagnosticError:   "error",
}

func (d DiagnosticClass) String() string { return diagnosticNames[d] }

// ParseDiagnosticClass maps a class name back to its value.
func ParseDiagnosticClass(name string) (DiagnosticClass, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for class, n := range diagnosticNames {
		if n == name {
			return class, true
		}
	}
	return DiagnosticOK, false
}

var (
	privateMarkers = []string{"access denied", "private", "hidden", "pending"}
	invalidMarkers = []string{"not found", "404", "navigation failed", "invalid"}
)

// ClassifyDiagnostic buckets a diagnostic message. Private markers win over
// invalid ones.
func ClassifyDiagnostic(msg string) DiagnosticClass {
	msg = strings.ToLower(strings.TrimSpace(msg))
	if msg == "" {
		return DiagnosticOK
	}
	if containsAny(msg, privateMarkers) {
		return DiagnosticPrivate
	}
	if containsAny(msg, invalidMarkers) {
		return DiagnosticInvalid
	}
	return DiagnosticError
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
