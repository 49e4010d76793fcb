package assistant

import "strings"

// DefaultHedgePhrases are the replies that signal the model found nothing.
var DefaultHedgePhrases = []string{
	"I don't know",
	"I couldn't find",
	"there is no information about",
	"I'm sorry",
	"is not mentioned",
	"I don't have information",
	"there is no specific information",
	"there is no mention",
	"document does not provide",
}

// HedgeDetector flags answers containing any of its phrases. Matching is a
// case-sensitive substring test.
type HedgeDetector struct {
	phrases []string
}

// NewHedgeDetector uses DefaultHedgePhrases when phrases is empty. Blank
// phrases are ignored.
func NewHedgeDetector(phrases []string) *HedgeDetector {
	if len(phrases) == 0 {
		phrases = DefaultHedgePhrases
	}
	h := &HedgeDetector{}
	for _, p := range phrases {
		if p != "" {
			h.phrases = append(h.phrases, p)
		}
	}
	return h
}

func (h *HedgeDetector) IsHedge(answer string) bool {
	for _, p := range h.phrases {
		if strings.Contains(answer, p) {
			return true
		}
	}
	return false
}
