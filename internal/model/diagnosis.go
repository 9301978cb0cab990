// internal/model/diagnosis.go
package model

// DiagnosisType is the failure category detected in process output.
type DiagnosisType string

const (
	PortConflict            DiagnosisType = "port_conflict"
	EndpointCreationFailure DiagnosisType = "endpoint_creation_failure"
	NATMappingConflict      DiagnosisType = "nat_mapping_conflict"
	ServiceFailure          DiagnosisType = "service_failure"
	UnknownNetworkFailure   DiagnosisType = "unknown_network_failure"
)

// Severity of a diagnosis.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Action tags carried by suggestions.
const (
	ActionRunDiagnostics = "run_diagnostics"
	ActionRunFixScript   = "run_fix_script"
	ActionRestartService = "restart_service"
	ActionRetry          = "retry"
)

// RemediationSuggestion is one ranked remediation step.
type RemediationSuggestion struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Automated       bool   `json:"automated"`
	Action          string `json:"action,omitempty"`
	ScriptReference string `json:"scriptReference,omitempty"`
}

// ErrorDiagnosis is the classifier's structured result. It is built fresh
// for each call and never mutated afterwards.
type ErrorDiagnosis struct {
	Type          DiagnosisType           `json:"type"`
	Severity      Severity                `json:"severity"`
	ErrorCode     string                  `json:"errorCode,omitempty"`
	AffectedPorts []int                   `json:"affectedPorts"`
	Message       string                  `json:"message"`
	Suggestions   []RemediationSuggestion `json:"suggestions"`
}
