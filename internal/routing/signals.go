package routing

import (
	"context"
	"sort"
	"strings"
)

// Signals maps specialist domains to confidence scores in [0, 1].
type Signals map[string]float64

// Domains returns the signalled domains sorted by descending score,
// ties broken alphabetically so routing is deterministic.
func (s Signals) Domains() []string {
	domains := make([]string, 0, len(s))
	for d := range s {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool {
		if s[domains[i]] != s[domains[j]] {
			return s[domains[i]] > s[domains[j]]
		}
		return domains[i] < domains[j]
	})
	return domains
}

// SignalSource scores a message against the specialist domains.
type SignalSource interface {
	Score(ctx context.Context, message string) (Signals, error)
}

// perKeywordScore is added per matched keyword; scores cap at 1.0.
const perKeywordScore = 0.5

// KeywordSource scores messages by substring keyword matching. It is
// the stock SignalSource: cheap, deterministic, and good enough to
// steer the first hop before a specialist takes over.
type KeywordSource struct {
	keywords map[string][]string
}

// NewKeywordSource returns a source covering the built-in specialist
// domains.
func NewKeywordSource() *KeywordSource {
	return &KeywordSource{
		keywords: map[string][]string{
			"career": {
				"career", "job", "resume", "interview", "skills",
				"employment", "hiring", "salary",
			},
			"ej": {
				"environmental justice", "environment", "pollution",
				"equity", "community", "climate", "sustainability",
			},
			"veteran": {
				"veteran", "military", "service member", "deployment",
				"va benefits", "discharge", "gi bill",
			},
			"international": {
				"international", "visa", "immigration", "credential",
				"foreign", "work permit", "green card",
			},
		},
	}
}

func (k *KeywordSource) Score(ctx context.Context, message string) (Signals, error) {
	text := strings.ToLower(message)
	signals := make(Signals)
	for domain, words := range k.keywords {
		var score float64
		for _, w := range words {
			if strings.Contains(text, w) {
				score += perKeywordScore
			}
		}
		if score > 1.0 {
			score = 1.0
		}
		if score > 0 {
			signals[domain] = score
		}
	}
	return signals, nil
}
