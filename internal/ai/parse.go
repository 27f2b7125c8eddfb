package ai

import (
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

// Plan is a structured study plan proposed by the model.
type Plan struct {
	Summary string     `json:"summary"`
	Tasks   []PlanTask `json:"tasks"`
	Tips    []string   `json:"tips"`
}

// PlanTask is one importable task within a plan.
type PlanTask struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	FocusDuration int             `json:"focusDuration"`
	MicroTasks    []PlanMicroTask `json:"microTasks"`
}

// PlanMicroTask is one step inside a plan task.
type PlanMicroTask struct {
	Text string `json:"text"`
}

// PlanReply is the parsed form of an assistant reply: conversational text
// plus, when the model emitted one, a structured plan. Plan is nil for plain
// chat turns.
type PlanReply struct {
	Text string `json:"text"`
	Plan *Plan  `json:"plan,omitempty"`
}

var (
	fencedJSON = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?)(?:```|$)")
	fenceMarks = regexp.MustCompile("(?i)```(?:json)?")

	// trailing partial "key": value fragments left by a cut-off response
	danglingField = regexp.MustCompile(`,\s*"[^"]*"\s*:\s*"?[^",}]*"?\s*$`)
	trailingComma = regexp.MustCompile(`,\s*$`)
)

// ParsePlanReply extracts the structured plan from a raw assistant reply.
// The model is told to fence the plan in a json block, but replies get cut
// off and fences get dropped in practice, so extraction is best-effort:
// fenced block first, then the outermost brace span, then truncation repair.
// Whatever cannot be recovered comes back as plain text.
func ParsePlanReply(content string) PlanReply {
	textFallback := cleanText(content)

	var jsonStr string
	var matched string
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		matched = m[0]
		jsonStr = m[1]
	} else {
		first := strings.Index(content, "{")
		last := strings.LastIndex(content, "}")
		if first != -1 && last > first {
			jsonStr = content[first : last+1]
			matched = jsonStr
		}
	}
	if jsonStr == "" {
		return PlanReply{Text: textFallback}
	}

	var plan Plan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err == nil {
		return PlanReply{
			Text: cleanText(strings.Replace(content, matched, "", 1)),
			Plan: &plan,
		}
	}

	// Truncated mid-object: drop the dangling fragment and try plausible
	// closing sequences until one parses into a plan with tasks.
	partial := trailingComma.ReplaceAllString(jsonStr, "")
	partial = danglingField.ReplaceAllString(partial, "")
	for _, closer := range []string{"}", "]}", "]}]}", `"]}]}`, `"}]}`} {
		var repaired Plan
		if err := json.Unmarshal([]byte(partial+closer), &repaired); err == nil && len(repaired.Tasks) > 0 {
			return PlanReply{
				Text: cleanText(strings.Replace(content, jsonStr, "", 1)),
				Plan: &repaired,
			}
		}
	}

	return PlanReply{Text: textFallback}
}

// cleanText removes markdown code fences and trims the result.
func cleanText(content string) string {
	cleaned := fenceMarks.ReplaceAllString(content, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
