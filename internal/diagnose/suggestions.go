package diagnose

import "github.com/rusenback/erpmon/internal/model"

// Remediation scripts shipped next to the application. Suggestions only
// name them; running them is up to the caller.
const (
	ScriptDiagnoseNetwork   = "Diagnose-HnsNetwork.ps1"
	ScriptFixPortConflict   = "Repair-HnsPortConflict.ps1"
	ScriptFixEndpoints      = "Remove-StaleHnsEndpoints.ps1"
	ScriptFixNATMapping     = "Reset-NatStaticMapping.ps1"
	ScriptRestartHNSService = "Restart-HnsService.ps1"
)

var runDiagnostics = model.RemediationSuggestion{
	Title:           "Run network diagnostics",
	Description:     "Collect HNS networks, endpoints, NAT mappings and port reservations to see what is holding the resource.",
	Automated:       true,
	Action:          model.ActionRunDiagnostics,
	ScriptReference: ScriptDiagnoseNetwork,
}

var retryDeployment = model.RemediationSuggestion{
	Title:       "Retry the deployment",
	Description: "Transient HNS state is sometimes released within a few seconds. Retry once before changing anything.",
	Automated:   true,
	Action:      model.ActionRetry,
}

var suggestionTable = map[model.DiagnosisType][]model.RemediationSuggestion{
	model.PortConflict: {
		runDiagnostics,
		{
			Title:           "Run port conflict fix script",
			Description:     "Remove stale port reservations and orphaned endpoints left behind by containers that were not cleaned up.",
			Automated:       true,
			Action:          model.ActionRunFixScript,
			ScriptReference: ScriptFixPortConflict,
		},
		{
			Title:       "Choose different published ports",
			Description: "If another service legitimately owns the port, change the container's published port mapping and redeploy.",
		},
		retryDeployment,
	},
	model.EndpointCreationFailure: {
		runDiagnostics,
		{
			Title:           "Run endpoint cleanup script",
			Description:     "Delete HNS endpoints that no longer belong to a running container so a new endpoint can be attached.",
			Automated:       true,
			Action:          model.ActionRunFixScript,
			ScriptReference: ScriptFixEndpoints,
		},
		retryDeployment,
	},
	model.NATMappingConflict: {
		runDiagnostics,
		{
			Title:           "Run NAT mapping reset script",
			Description:     "Remove the conflicting NAT static mapping so the port can be mapped to the new container.",
			Automated:       true,
			Action:          model.ActionRunFixScript,
			ScriptReference: ScriptFixNATMapping,
		},
		retryDeployment,
	},
	model.ServiceFailure: {
		{
			Title:           "Restart the network service",
			Description:     "Restart the Host Network Service and the container engine, then wait for the engine to answer again.",
			Automated:       true,
			Action:          model.ActionRestartService,
			ScriptReference: ScriptRestartHNSService,
		},
		runDiagnostics,
		{
			Title:       "Check that the container engine is running",
			Description: "Make sure the engine service is started and that this user can reach its named pipe or socket.",
		},
	},
	model.UnknownNetworkFailure: {
		runDiagnostics,
	},
}

// suggestionsFor returns a fresh copy so callers cannot alter the table.
func suggestionsFor(t model.DiagnosisType) []model.RemediationSuggestion {
	src := suggestionTable[t]
	out := make([]model.RemediationSuggestion, len(src))
	copy(out, src)
	return out
}
