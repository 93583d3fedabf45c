package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/baraholka/marketbot/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		theme string
		want  Level
	}{
		{name: "privilege purchase is high", theme: "💰 Покупка привилегии", want: LevelHigh},
		{name: "advertising is high", theme: "📢 Реклама в канале", want: LevelHigh},
		{name: "buy keyword is high", theme: "Хочу купить размещение", want: LevelHigh},
		{name: "bot questions are low", theme: "❓ Вопросы о боте", want: LevelLow},
		{name: "help request is low", theme: "Нужна помощь", want: LevelLow},
		{name: "unmatched theme is medium", theme: "⚠️ Жалоба на пользователя", want: LevelMedium},
		{name: "empty theme is medium", theme: "", want: LevelMedium},
		{name: "high outranks low when both match", theme: "Вопрос: как купить рекламу", want: LevelHigh},
		{name: "case insensitive", theme: "КУПИТЬ ПРИВИЛЕГИЮ", want: LevelHigh},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.theme))
		})
	}
}

func TestIcon(t *testing.T) {
	assert.Equal(t, "🔴", Icon(LevelHigh))
	assert.Equal(t, "🟡", Icon(LevelMedium))
	assert.Equal(t, "🟢", Icon(LevelLow))
	assert.Equal(t, "⚪", Icon(Level("unknown")))
}

func TestSortTicketsStable(t *testing.T) {
	tickets := []domain.Ticket{
		{ID: 1, Theme: "❓ Вопросы о боте"},
		{ID: 2, Theme: "⚠️ Жалоба"},
		{ID: 3, Theme: "💰 Покупка привилегии"},
		{ID: 4, Theme: "Нужна помощь"},
		{ID: 5, Theme: "📢 Реклама"},
	}

	SortTickets(tickets)

	got := make([]int64, 0, len(tickets))
	for _, tk := range tickets {
		got = append(got, tk.ID)
	}
	// High first in original order, then medium, then low in original order.
	assert.Equal(t, []int64{3, 5, 2, 1, 4}, got)
}
