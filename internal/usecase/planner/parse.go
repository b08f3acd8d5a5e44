package planner

import (
	"encoding/json"
	"regexp"
	"strings"

	"screen-guide/internal/domain/entity"
)

// ParseMethod names the rung of the parse ladder that produced a plan.
type ParseMethod string

const (
	MethodStrict    ParseMethod = "strict"
	MethodExtracted ParseMethod = "extracted"
	MethodRepaired  ParseMethod = "repaired"
	MethodHeuristic ParseMethod = "heuristic"
	MethodDefault   ParseMethod = "default"
)

const (
	DefaultStepDescription = "Follow the visual guidance with the highlighted elements"
	minContinuationLen     = 10
)

var (
	arrayPattern       = regexp.MustCompile(`(?s)\[\s*\{.*?\}\s*\]`)
	jsonFencePattern   = regexp.MustCompile("(?s)```json\\s*(\\[.*?\\])\\s*```")
	plainFencePattern  = regexp.MustCompile("(?s)```\\s*(\\[.*?\\])\\s*```")
	trailingComma      = regexp.MustCompile(`,\s*([\]}])`)
	stepIndicatorWords = []string{"step", "click", "open", "type", "navigate"}
)

type rawStep struct {
	Action         string `json:"action"`
	Target         string `json:"target"`
	Description    string `json:"description"`
	ExpectedResult string `json:"expected_result"`
}

type stepsWrapper struct {
	Steps []rawStep `json:"steps"`
}

// Parse turns a model response into a plan. It never returns an empty slice.
func Parse(text string) ([]entity.TaskStep, ParseMethod) {
	text = strings.TrimSpace(text)

	if steps := decode(text); len(steps) > 0 {
		return steps, MethodStrict
	}

	extracted := extract(text)
	if extracted != "" {
		if steps := decode(extracted); len(steps) > 0 {
			return steps, MethodExtracted
		}
	}

	for _, candidate := range []string{extracted, text} {
		if candidate == "" {
			continue
		}
		if steps := decode(repair(candidate)); len(steps) > 0 {
			return steps, MethodRepaired
		}
	}

	if steps := ParseLines(text); len(steps) > 0 {
		return steps, MethodHeuristic
	}

	return DefaultPlan(), MethodDefault
}

// ParseLines is the line heuristic: a line mentioning a step indicator opens
// a new step, longer lines after it extend its description.
func ParseLines(text string) []entity.TaskStep {
	var steps []entity.TaskStep
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if hasStepIndicator(line) {
			steps = append(steps, entity.TaskStep{
				Action:         "click",
				Target:         "UI element",
				Description:    line,
				ExpectedResult: "Continue to next step",
			})
			continue
		}

		if len(steps) > 0 && len(line) > minContinuationLen {
			last := &steps[len(steps)-1]
			last.Description += " " + line
		}
	}
	return entity.NormalizeSteps(steps)
}

func DefaultPlan() []entity.TaskStep {
	return entity.NormalizeSteps([]entity.TaskStep{{
		Action:         "click",
		Target:         "relevant UI element",
		Description:    DefaultStepDescription,
		ExpectedResult: "Complete the task step by step",
	}})
}

func hasStepIndicator(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range stepIndicatorWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func decode(text string) []entity.TaskStep {
	if text == "" {
		return nil
	}

	var raw []rawStep
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		var wrapped stepsWrapper
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
			return nil
		}
		raw = wrapped.Steps
	}

	steps := make([]entity.TaskStep, 0, len(raw))
	for _, r := range raw {
		steps = append(steps, entity.TaskStep{
			Action:         strings.TrimSpace(r.Action),
			Target:         strings.TrimSpace(r.Target),
			Description:    strings.TrimSpace(r.Description),
			ExpectedResult: strings.TrimSpace(r.ExpectedResult),
		})
	}
	return entity.NormalizeSteps(steps)
}

func extract(text string) string {
	if m := arrayPattern.FindString(text); m != "" {
		return m
	}
	for _, re := range []*regexp.Regexp{jsonFencePattern, plainFencePattern} {
		if m := re.FindStringSubmatch(text); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}

// repair fixes the usual defects of model-written JSON.
func repair(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = escapeStrayBackslashes(text)
	return trailingComma.ReplaceAllString(text, "$1")
}

func escapeStrayBackslashes(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(text) && strings.IndexByte(`"\/bfnrtu`, text[i+1]) >= 0 {
			b.WriteByte(c)
			b.WriteByte(text[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}
