package opinion

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/mailwatch/phishfilter/internal/core"
)

// Fallback scores when the reply carries no usable percentage.
const (
	fallbackPhishingScore = 75
	fallbackBenignScore   = 25
)

var percentPattern = regexp.MustCompile(`(\d+)\s*%`)

// section is the cursor state while harvesting bulleted lines from a
// free-form reply. A later section header always overrides the cursor.
type section int

const (
	sectionNone section = iota
	sectionKey
	sectionSafe
	sectionRecommend
)

// ParseReply normalizes a raw model reply into an ExternalVerdict. It
// first looks for a JSON object spanning the first '{' to the last '}';
// if none parses, it falls back to heuristic extraction from the prose.
func ParseReply(reply string) core.ExternalVerdict {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		var verdict core.ExternalVerdict
		err := json.Unmarshal([]byte(reply[start:end+1]), &verdict)
		if err == nil {
			return verdict
		}
		return parseHeuristic(reply, err.Error())
	}

	return parseHeuristic(reply, "")
}

// parseHeuristic recovers a verdict from prose: a yes/phishing
// co-occurrence for the boolean, the first percentage for the score, and
// bulleted lines under recognized section headers for the indicator lists.
func parseHeuristic(reply, parseError string) core.ExternalVerdict {
	lower := strings.ToLower(reply)
	isPhishing := strings.Contains(lower, "yes") && strings.Contains(lower, "phishing")

	score := float64(fallbackBenignScore)
	if isPhishing {
		score = fallbackPhishingScore
	}
	if m := percentPattern.FindStringSubmatch(reply); m != nil {
		if parsed, err := strconv.Atoi(m[1]); err == nil {
			score = float64(parsed)
		}
	}

	verdict := core.ExternalVerdict{
		IsPhishing:      isPhishing,
		Score:           score,
		KeyIndicators:   []string{},
		SafeIndicators:  []string{},
		Recommendations: []string{},
		Narrative:       reply,
		ParseError:      parseError,
	}

	cursor := sectionNone
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lowerLine := strings.ToLower(line)
		switch {
		case strings.Contains(lowerLine, "key indicators") || strings.Contains(lowerLine, "phishing indicators"):
			cursor = sectionKey
		case strings.Contains(lowerLine, "safe indicators") || strings.Contains(lowerLine, "legitimate indicators"):
			cursor = sectionSafe
		case strings.Contains(lowerLine, "recommendations"):
			cursor = sectionRecommend
		case strings.HasPrefix(line, "-"):
			item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			switch cursor {
			case sectionKey:
				verdict.KeyIndicators = append(verdict.KeyIndicators, item)
			case sectionSafe:
				verdict.SafeIndicators = append(verdict.SafeIndicators, item)
			case sectionRecommend:
				verdict.Recommendations = append(verdict.Recommendations, item)
			}
		}
	}

	return verdict
}
