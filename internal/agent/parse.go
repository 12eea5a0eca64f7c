// internal/agent/parse.go
package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencePattern  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	branchPattern = regexp.MustCompile(`(?im)^\s*branch(?:[ _]name)?\s*[:=]\s*([^\s]+)`)
	commitPattern = regexp.MustCompile(`(?im)^\s*commit(?:[ _]hash)?\s*[:=]\s*([0-9a-f]{7,40})`)
)

// parseResult extracts a RemediateResult from model output. Models are
// instructed to reply with a single JSON object, optionally fenced;
// older transcript formats that only mention the branch in prose are
// scraped as a fallback.
func parseResult(text string) (*RemediateResult, error) {
	candidate := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	if res, ok := tryDecode(candidate); ok {
		return res, nil
	}

	// The object may be surrounded by prose.
	if start, end := strings.Index(candidate, "{"), strings.LastIndex(candidate, "}"); start >= 0 && end > start {
		if res, ok := tryDecode(candidate[start : end+1]); ok {
			return res, nil
		}
	}

	res := &RemediateResult{}
	if m := branchPattern.FindStringSubmatch(text); m != nil {
		res.BranchName = strings.Trim(m[1], "`'\"")
	}
	if m := commitPattern.FindStringSubmatch(text); m != nil {
		res.CommitHash = m[1]
	}
	if res.BranchName == "" {
		return nil, fmt.Errorf("no remediation result found in agent output")
	}
	return res, nil
}

func tryDecode(candidate string) (*RemediateResult, bool) {
	var res RemediateResult
	if err := json.Unmarshal([]byte(candidate), &res); err != nil {
		return nil, false
	}
	if res.BranchName == "" {
		return nil, false
	}
	return &res, true
}
