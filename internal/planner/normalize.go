package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxSteps caps how many steps a normalized plan may carry, no matter how
// chatty the model output was.
const MaxSteps = 10

type Step struct {
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

type Plan struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Steps   []Step `json:"steps"`
}

var (
	fencedJSONRe     = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*\\})\\s*```")
	headingMarkerRe  = regexp.MustCompile(`^#{1,6}\s*`)
	listMarkerRe     = regexp.MustCompile(`^(\d+[).]|[-*•])\s*`)
	checkboxRe       = regexp.MustCompile(`^\[(x|X| )\]\s*`)
	innerCheckboxRe  = regexp.MustCompile(`\[(x|X| )\]\s*`)
	boldRe           = regexp.MustCompile(`\*\*(.*?)\*\*`)
	underlineRe      = regexp.MustCompile(`__(.*?)__`)
	codeSpanRe       = regexp.MustCompile("`([^`]+)`")
	edgeStarsRe      = regexp.MustCompile(`^\*+|\*+$`)
	whitespaceRunRe  = regexp.MustCompile(`\s+`)
	preambleRe       = regexp.MustCompile(`(?i)^(certainly|sure|great|awesome|here['’]?s).*(study plan|tailored)`)
	sectionHeadingRe = regexp.MustCompile(`(?i)^(week|day|phase|step|session)\b`)
	detailPhraseRe   = regexp.MustCompile(`(?i)(such as|including|include|focus on)\s*$`)
	checkboxSplitRe  = regexp.MustCompile(`\[(?:x|X| )\]\s+`)
)

// Normalize converts raw model output into the canonical plan structure.
// It never fails: valid JSON wins when it yields at least one step,
// otherwise the text is salvaged line by line, and an empty result still
// produces a single step synthesized from the summary.
func Normalize(rawText, goal, topic string) Plan {
	if parsed, ok := tryParseJSONPlan(rawText); ok {
		normalized := normalizeStructuredPlan(parsed, goal, topic)
		if len(normalized.Steps) > 0 {
			return normalized
		}
	}

	var expanded []string
	for _, sourceLine := range strings.Split(rawText, "\n") {
		expanded = append(expanded, splitCheckboxSegments(sourceLine)...)
	}

	var cleaned []string
	for _, line := range expanded {
		value := cleanLine(line)
		if value == "" || isNonActionable(value) {
			continue
		}
		cleaned = append(cleaned, value)
	}

	summary := defaultSummary(goal, topic)
	rest := cleaned
	if len(cleaned) > 0 {
		if isSectionHeading(cleaned[0]) {
			// A heading makes a poor summary; keep it in play as a step.
			rest = cleaned
		} else {
			summary = cleaned[0]
			rest = cleaned[1:]
		}
	}

	steps := assembleSteps(rest)
	if len(steps) == 0 {
		steps = []Step{{Title: summary}}
	}
	if len(steps) > MaxSteps {
		steps = steps[:MaxSteps]
	}

	return Plan{
		Title:   cleanLine(topic + " Study Plan"),
		Summary: summary,
		Steps:   steps,
	}
}

// assembleSteps scans cleaned lines in order, deciding per line whether it
// opens a new step or attaches as detail to the previous one. The
// attachment checks run against the most recently consumed line, so a
// section heading absorbs following lines only until a free-standing line
// resets the base.
func assembleSteps(lines []string) []Step {
	var steps []Step
	prevBase := ""

	for _, line := range lines {
		if isSectionHeading(line) || len(steps) == 0 {
			steps = append(steps, Step{Title: line})
			prevBase = line
			continue
		}

		if shouldAttachAsDetail(prevBase, line) {
			last := &steps[len(steps)-1]
			if last.Detail == "" {
				last.Detail = line
			} else {
				last.Detail += " • " + line
			}
			prevBase = line
			continue
		}

		steps = append(steps, Step{Title: line})
		prevBase = line
	}

	return steps
}

func tryParseJSONPlan(rawText string) (map[string]interface{}, bool) {
	body := strings.TrimSpace(rawText)
	if body == "" {
		return nil, false
	}

	// Handle markdown fenced JSON.
	if m := fencedJSONRe.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	candidates := []string{body}

	// Handle model outputs that prepend/append text around JSON.
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start != -1 && end != -1 && start < end {
		candidates = append(candidates, body[start:end+1])
	}

	for _, candidate := range candidates {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(candidate), &data); err != nil {
			continue
		}
		return data, true
	}

	return nil, false
}

func normalizeStructuredPlan(payload map[string]interface{}, goal, topic string) Plan {
	title := cleanedStringField(payload["title"])
	if title == "" {
		title = cleanLine(topic + " Study Plan")
	}

	summary := cleanedStringField(payload["summary"])
	if summary == "" {
		summary = defaultSummary(goal, topic)
	}

	var steps []Step
	if rawSteps, ok := payload["steps"].([]interface{}); ok {
		for _, item := range rawSteps {
			var step Step
			if m, ok := item.(map[string]interface{}); ok {
				step.Title = cleanLine(coerceString(m["title"]))
				step.Detail = cleanLine(coerceString(m["detail"]))
			} else {
				step.Title = cleanLine(coerceString(item))
			}

			if step.Title == "" {
				continue
			}
			steps = append(steps, step)
			if len(steps) == MaxSteps {
				break
			}
		}
	}

	return Plan{Title: title, Summary: summary, Steps: steps}
}

// cleanedStringField accepts only genuine strings; anything else falls back
// to the synthesized default at the call site.
func cleanedStringField(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return cleanLine(s)
}

func coerceString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%v", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func defaultSummary(goal, topic string) string {
	return fmt.Sprintf("Study plan for %s (%s).", goal, topic)
}

func cleanLine(line string) string {
	value := strings.TrimSpace(line)
	value = headingMarkerRe.ReplaceAllString(value, "")
	value = listMarkerRe.ReplaceAllString(value, "")
	value = checkboxRe.ReplaceAllString(value, "")
	value = boldRe.ReplaceAllString(value, "$1")
	value = edgeStarsRe.ReplaceAllString(value, "")
	value = innerCheckboxRe.ReplaceAllString(value, "")
	value = underlineRe.ReplaceAllString(value, "$1")
	value = codeSpanRe.ReplaceAllString(value, "$1")
	value = whitespaceRunRe.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

func isNonActionable(line string) bool {
	if line == "*" || line == "**" {
		return true
	}
	return preambleRe.MatchString(line)
}

func isSectionHeading(line string) bool {
	return sectionHeadingRe.MatchString(line)
}

func shouldAttachAsDetail(previous, line string) bool {
	if isSectionHeading(previous) {
		return true
	}
	if detailPhraseRe.MatchString(previous) {
		return true
	}
	return utf8.RuneCountInString(line) > 55
}

// splitCheckboxSegments breaks a line holding several markdown checklist
// items into one segment per item, so they do not collapse into one step.
func splitCheckboxSegments(line string) []string {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return nil
	}

	locs := checkboxSplitRe.FindAllStringIndex(raw, -1)

	var cuts []int
	for _, loc := range locs {
		if loc[0] > 0 {
			cuts = append(cuts, loc[0])
		}
	}

	if len(cuts) == 0 {
		return []string{raw}
	}

	var segments []string
	prev := 0
	for _, cut := range cuts {
		if segment := strings.TrimSpace(raw[prev:cut]); segment != "" {
			segments = append(segments, segment)
		}
		prev = cut
	}
	if segment := strings.TrimSpace(raw[prev:]); segment != "" {
		segments = append(segments, segment)
	}

	if len(segments) == 0 {
		return []string{raw}
	}
	return segments
}
