package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixlab/polysin/core"
)

// ParseResponse decodes the oracle's raw text into a Response. The
// top-level shape is enforced here: a missing or non-list analysis_log
// is ErrMalformedResponse, as is anything that is not a JSON object.
// Models sometimes wrap output in markdown fences despite instructions,
// so fences are stripped first.
func ParseResponse(raw string) (*Response, error) {
	text := stripFences(strings.TrimSpace(raw))

	var probe struct {
		AnalysisLog *json.RawMessage `json:"analysis_log"`
	}
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, malformed("not a JSON object: %v", err)
	}
	if probe.AnalysisLog == nil {
		return nil, malformed("missing analysis_log")
	}

	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, malformed("bad field types: %v", err)
	}
	if resp.AnalysisLog == nil {
		return nil, malformed("analysis_log is not a list")
	}
	return &resp, nil
}

// stripFences removes a leading ```/```json fence and its closing fence.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", core.ErrMalformedResponse, fmt.Sprintf(format, args...))
}
