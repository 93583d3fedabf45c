// Package priority assigns support tickets a triage level from the text
// of their theme and keeps admin queues ordered by urgency.
package priority

import (
	"sort"
	"strings"

	"github.com/baraholka/marketbot/internal/domain"
)

// Level is a triage level for a ticket.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Keyword lists are matched as substrings of the lowercased theme. High
// outranks low when both match.
var (
	highKeywords = []string{"покупка привилегии", "реклам", "купить", "privilege", "advert", "purchase"}
	lowKeywords  = []string{"вопрос", "бот", "помощь", "question", "bot", "help"}
)

// Classify derives the triage level from a ticket theme. Themes matching
// no keyword list land in the middle.
func Classify(theme string) Level {
	lowered := strings.ToLower(theme)
	for _, kw := range highKeywords {
		if strings.Contains(lowered, kw) {
			return LevelHigh
		}
	}
	for _, kw := range lowKeywords {
		if strings.Contains(lowered, kw) {
			return LevelLow
		}
	}
	return LevelMedium
}

// Icon returns the marker shown next to a ticket in admin lists.
func Icon(level Level) string {
	switch level {
	case LevelHigh:
		return "🔴"
	case LevelMedium:
		return "🟡"
	case LevelLow:
		return "🟢"
	default:
		return "⚪"
	}
}

func rank(level Level) int {
	switch level {
	case LevelHigh:
		return 0
	case LevelMedium:
		return 1
	case LevelLow:
		return 2
	default:
		return 3
	}
}

// SortTickets orders tickets most urgent first, preserving the incoming
// order inside each level.
func SortTickets(tickets []domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return rank(Classify(tickets[i].Theme)) < rank(Classify(tickets[j].Theme))
	})
}
