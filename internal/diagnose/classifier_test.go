package diagnose

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rusenback/erpmon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNoDiagnosis(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.Nil(t, Classify([]string{}))
	assert.Nil(t, Classify([]string{"all good", "container started"}))
	assert.Nil(t, Classify([]string{"port 8080 published", "network nat attached"}))
}

func TestClassifyPortConflict(t *testing.T) {
	d := Classify([]string{"[ERROR] port already exists (0x803B0013)"})
	require.NotNil(t, d)

	assert.Equal(t, model.PortConflict, d.Type)
	assert.Equal(t, model.SeverityCritical, d.Severity)
	assert.Equal(t, "0x803b0013", d.ErrorCode)
	assert.Equal(t, "port already exists (0x803B0013)", d.Message)
	assert.Empty(t, d.AffectedPorts)
}

func TestClassifyPortsOutsideBandAreIgnored(t *testing.T) {
	d := Classify([]string{
		"Deploying bc-sandbox ... port already exists (0x803b0013) - port 8080 is in use",
		"port 80 is blocked",
	})
	require.NotNil(t, d)

	assert.Equal(t, model.PortConflict, d.Type)
	assert.Equal(t, []int{8080}, d.AffectedPorts)
	assert.Equal(t, "0x803b0013", d.ErrorCode)
}

func TestClassifyPortsAreOrderedAndDeduplicated(t *testing.T) {
	d := Classify([]string{
		"failed to create endpoint web on network nat: port 7049 and 7048",
		"retrying 7049, then port 8080",
		"port 99999 and 443 ignored",
	})
	require.NotNil(t, d)

	assert.Equal(t, model.EndpointCreationFailure, d.Type)
	assert.Equal(t, []int{7049, 7048, 8080}, d.AffectedPorts)
	assert.Empty(t, d.ErrorCode)
}

func TestClassifyIgnoresNumbersOutsidePortContext(t *testing.T) {
	d := Classify([]string{
		"2024-05-01 12:00:00 [ERROR] port already exists (0x803b0013) - port 8080 is in use",
		"docker: Error response from daemon: pid 4312 exited, retried 3000 ms",
	})
	require.NotNil(t, d)
	assert.Equal(t, []int{8080}, d.AffectedPorts)
	assert.Equal(t, "port already exists (0x803b0013) - port 8080 is in use", d.Message)
}

func TestPortTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"port 8080 is in use", []int{8080}},
		{"Port: 7049", []int{7049}},
		{"ports 7046, 7047 and 7048", []int{7046, 7047, 7048}},
		{"EXPOSE 8080", []int{8080}},
		{"listening on 7085", []int{7085}},
		{"bind 0.0.0.0:8443 failed", []int{8443}},
		{"dial tcp localhost:7048: refused", []int{7048}},
		{"[::]:7049", []int{7049}},
		{"published 7047/tcp and 7048/udp", []int{7047, 7048}},
		{"at 12:30:45 after 3000 ms, pid 4312, year 2024", nil},
		{"0x803b0013", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got []int
			for _, tok := range portTokens(tt.in) {
				got = append(got, tok.port)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifySpecificBeatsGeneric(t *testing.T) {
	d := Classify([]string{"network error - port already exists (0x803b0013)"})
	require.NotNil(t, d)
	assert.Equal(t, model.PortConflict, d.Type)

	d = Classify([]string{
		"[WARN] connection error on port 7045",
		"HNS failed with error : The specified NAT static mapping already exists",
	})
	require.NotNil(t, d)
	assert.Equal(t, model.NATMappingConflict, d.Type)
	assert.Equal(t, "HNS failed with error : The specified NAT static mapping already exists", d.Message)
}

func TestClassifyTypes(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		wantType model.DiagnosisType
		wantSev  model.Severity
		wantCode string
		wantMsg  string
	}{
		{
			name:     "endpoint creation",
			lines:    []string{"docker: Error response from daemon: failed to create endpoint bc on network nat: HNS failed with error : Unspecified error (0x80004005)."},
			wantType: model.EndpointCreationFailure,
			wantSev:  model.SeverityCritical,
			wantCode: "0x80004005",
			wantMsg:  "docker: Error response from daemon: failed to create endpoint bc on network nat: HNS failed with error : Unspecified error (0x80004005).",
		},
		{
			name:     "nat mapping",
			lines:    []string{"starting", "[error] NAT static mapping already exists"},
			wantType: model.NATMappingConflict,
			wantSev:  model.SeverityCritical,
			wantMsg:  "NAT static mapping already exists",
		},
		{
			name:     "hns not running",
			lines:    []string{"[FATAL] The Host Network Service is not running."},
			wantType: model.ServiceFailure,
			wantSev:  model.SeverityCritical,
			wantMsg:  "The Host Network Service is not running.",
		},
		{
			name:     "network service not running",
			lines:    []string{"network service not running"},
			wantType: model.ServiceFailure,
			wantSev:  model.SeverityCritical,
			wantMsg:  "network service not running",
		},
		{
			name:     "docker daemon unreachable",
			lines:    []string{"Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?"},
			wantType: model.ServiceFailure,
			wantSev:  model.SeverityCritical,
			wantMsg:  "Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?",
		},
		{
			name:     "docker pipe missing",
			lines:    []string{"error during connect: open //./pipe/docker_engine: The system cannot find the file specified."},
			wantType: model.ServiceFailure,
			wantSev:  model.SeverityCritical,
		},
		{
			name:     "generic network failure",
			lines:    []string{"pulling image", "[INFO] Unable to reach network share \\\\fs01"},
			wantType: model.UnknownNetworkFailure,
			wantSev:  model.SeverityWarning,
			wantMsg:  "Unable to reach network share \\\\fs01",
		},
		{
			name:     "generic words on separate lines do not match",
			lines:    []string{"error while copying", "network created"},
			wantType: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.lines)
			if tt.wantType == "" {
				assert.Nil(t, d)
				return
			}
			require.NotNil(t, d)
			assert.Equal(t, tt.wantType, d.Type)
			assert.Equal(t, tt.wantSev, d.Severity)
			assert.Equal(t, tt.wantCode, d.ErrorCode)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, d.Message)
			}
		})
	}
}

func TestClassifyErrorCodeOnlyFromMatchedRegion(t *testing.T) {
	d := Classify([]string{
		"previous run exited 0x00000001",
		"failed to create network endpoint for bc",
	})
	require.NotNil(t, d)
	assert.Equal(t, model.EndpointCreationFailure, d.Type)
	assert.Empty(t, d.ErrorCode)
}

func TestClassifierCustomPortRange(t *testing.T) {
	c := NewClassifier(PortRange{Min: 7045, Max: 7049})
	d := c.Classify([]string{"port already exists for ports 7046, 8080 and 7045"})
	require.NotNil(t, d)
	assert.Equal(t, []int{7046, 7045}, d.AffectedPorts)
}

func TestRuleOrder(t *testing.T) {
	assert.Equal(t, []model.DiagnosisType{
		model.PortConflict,
		model.EndpointCreationFailure,
		model.NATMappingConflict,
		model.ServiceFailure,
		model.UnknownNetworkFailure,
	}, RuleOrder())
}

func TestSuggestionShape(t *testing.T) {
	for _, typ := range RuleOrder() {
		t.Run(string(typ), func(t *testing.T) {
			suggestions := suggestionsFor(typ)
			require.NotEmpty(t, suggestions)
			for _, s := range suggestions {
				assert.NotEmpty(t, s.Title)
				assert.NotEmpty(t, s.Description)
				if s.Automated && s.Action != model.ActionRetry {
					assert.NotEmpty(t, s.ScriptReference, s.Title)
				}
			}
		})
	}
}

func TestSuggestionCoverage(t *testing.T) {
	actions := func(typ model.DiagnosisType) []string {
		var out []string
		for _, s := range suggestionsFor(typ) {
			out = append(out, s.Action)
		}
		return out
	}

	for _, typ := range []model.DiagnosisType{model.PortConflict, model.NATMappingConflict, model.EndpointCreationFailure} {
		assert.Contains(t, actions(typ), model.ActionRunDiagnostics, typ)
		assert.Contains(t, actions(typ), model.ActionRunFixScript, typ)
	}
	assert.Contains(t, actions(model.ServiceFailure), model.ActionRestartService)
	assert.Equal(t, []string{model.ActionRunDiagnostics}, actions(model.UnknownNetworkFailure))
}

func TestSuggestionsAreCopies(t *testing.T) {
	d := Classify([]string{"port already exists"})
	require.NotNil(t, d)
	d.Suggestions[0].Title = "changed"

	again := Classify([]string{"port already exists"})
	require.NotNil(t, again)
	assert.Equal(t, "Run network diagnostics", again.Suggestions[0].Title)
}

func TestClassifyIsDeterministicAndConcurrent(t *testing.T) {
	lines := []string{"[ERROR] port already exists (0x803b0013) on 8080"}
	want := Classify(lines)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Classify(lines))
		}()
	}
	wg.Wait()
}

func TestExtractMessageStripsLevelTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"[ERROR] boom", "boom"},
		{"  [warning]   boom", "boom"},
		{"[Info]boom", "boom"},
		{"[custom] boom", "[custom] boom"},
		{"[ERROR] a\n[DEBUG] b", "a b"},
		{"2024-05-01 12:00:00 [ERROR] boom", "boom"},
		{"2024-05-01T12:00:00.123Z [warn] boom", "boom"},
		{"2024-05-01 12:00:00 boom", "2024-05-01 12:00:00 boom"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage(tt.in))
		})
	}
}
