package icinga2

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrObjectNotFound is returned when the api answers with an empty result set
var ErrObjectNotFound = errors.New("not found")

// APIError is returned for every response with a status other than 200
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Body)
}

// ObjectRef names the host or service object to query
type ObjectRef struct {
	Host    string
	Service string
}

// IsService reports whether the reference points to a service object
func (r ObjectRef) IsService() bool {
	return r.Service != ""
}

// Type returns the Icinga 2 object type, "host" or "service"
func (r ObjectRef) Type() string {
	if r.IsService() {
		return "service"
	}
	return "host"
}

// Name returns the full object name, host or host!service
func (r ObjectRef) Name() string {
	if r.IsService() {
		return r.Host + "!" + r.Service
	}
	return r.Host
}

func (r ObjectRef) String() string {
	return r.Type() + " " + r.Name()
}

// CheckResult is the last check result of an object
type CheckResult struct {
	Output          string
	PerformanceData []string
	ExitStatus      int
}

// objectsResponse is the body of GET /v1/objects/{hosts,services}
type objectsResponse struct {
	Results []objectResult `json:"results"`
}

type objectResult struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Attrs objectAttrs `json:"attrs"`
}

type objectAttrs struct {
	LastCheckResult *lastCheckResult `json:"last_check_result"`
}

// lastCheckResult keeps pointer and raw fields so absent keys can be told
// apart from empty values
type lastCheckResult struct {
	Output          *string         `json:"output"`
	PerformanceData json.RawMessage `json:"performance_data"`
	ExitStatus      json.Number     `json:"exit_status"`
}

// toCheckResult extracts the first object's last check result
func (r *objectsResponse) toCheckResult(ref ObjectRef) (*CheckResult, error) {
	if len(r.Results) == 0 {
		return nil, fmt.Errorf("%s %w", ref, ErrObjectNotFound)
	}

	lcr := r.Results[0].Attrs.LastCheckResult
	if lcr == nil {
		return nil, fmt.Errorf("%s has no last check result", ref)
	}

	if lcr.Output == nil {
		return nil, fmt.Errorf("%s: output is missing", ref)
	}

	exitStatus, err := parseExitStatus(lcr.ExitStatus)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}

	elements, err := parsePerfdata(lcr.PerformanceData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}

	perfdata := make([]string, 0, len(elements))
	for _, raw := range elements {
		token, err := perfdataToken(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid performance data: %w", ref, err)
		}
		perfdata = append(perfdata, token)
	}

	return &CheckResult{
		Output:          *lcr.Output,
		PerformanceData: perfdata,
		ExitStatus:      exitStatus,
	}, nil
}

// parseExitStatus accepts integral JSON numbers, Icinga 2 sends them as 0.0
func parseExitStatus(n json.Number) (int, error) {
	if n == "" {
		return 0, errors.New("exit_status is missing")
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("invalid exit_status %q: %w", n, err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("exit_status %s is not an integer", n)
	}
	// range is checked before the conversion, int(f) is undefined for huge f
	if f < 0 || f > 3 {
		return 0, fmt.Errorf("exit status %s is outside the plugin range 0-3", n)
	}
	return int(f), nil
}

// parsePerfdata requires the performance_data key, null and [] are empty
func parsePerfdata(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, errors.New("performance_data is missing")
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("invalid performance data: %w", err)
	}
	return elements, nil
}

// perfdataToken renders one performance_data element as text.
// Strings are used verbatim, everything else as compact JSON.
func perfdataToken(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return "", nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
