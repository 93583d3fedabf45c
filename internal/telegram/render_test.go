package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/baraholka/marketbot/internal/domain"
)

func TestTruncateShortTextUntouched(t *testing.T) {
	assert.Equal(t, "привет", Truncate("привет"))
}

func TestTruncateLongTextCutWithMarker(t *testing.T) {
	long := strings.Repeat("я", 5000)

	got := Truncate(long)

	runes := []rune(got)
	assert.Len(t, runes, 4000)
	assert.Equal(t, "...", string(runes[3997:]))
	assert.Equal(t, strings.Repeat("я", 3997), string(runes[:3997]))
}

func TestTruncateExactLimitUntouched(t *testing.T) {
	exact := strings.Repeat("a", 4000)
	assert.Equal(t, exact, Truncate(exact))
}

func TestRelayPrefix(t *testing.T) {
	assert.Equal(t, "🛠 Администратор:", RelayPrefix(true))
	assert.Equal(t, "👤 Пользователь:", RelayPrefix(false))
}

func TestRenderTicketViewIncludesHistory(t *testing.T) {
	ticket := domain.Ticket{
		ID:        9,
		UserID:    42,
		Theme:     "❓ Вопросы о боте",
		Status:    domain.TicketStatusInProgress,
		CreatedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}
	messages := []domain.TicketMessage{
		{TicketID: 9, SenderID: 42, Text: "Как выставить товар?", IsAdmin: false},
		{TicketID: 9, SenderID: 1, Text: "Нажмите «Продать».", IsAdmin: true},
	}

	view := RenderTicketView(ticket, messages)

	assert.Contains(t, view, "Обращение #9")
	assert.Contains(t, view, "🟢")
	assert.Contains(t, view, "⏳ В работе")
	assert.Contains(t, view, "👤 Пользователь: Как выставить товар?")
	assert.Contains(t, view, "🛠 Администратор: Нажмите «Продать».")
}

func TestRenderTicketViewNeverExceedsLimit(t *testing.T) {
	ticket := domain.Ticket{ID: 1, Theme: "✉️ Другое", Status: domain.TicketStatusNew, CreatedAt: time.Now()}
	messages := make([]domain.TicketMessage, 0, 200)
	for i := 0; i < 200; i++ {
		messages = append(messages, domain.TicketMessage{Text: strings.Repeat("слово ", 20)})
	}

	view := RenderTicketView(ticket, messages)

	assert.LessOrEqual(t, len([]rune(view)), 4000)
	assert.True(t, strings.HasSuffix(view, "..."))
}

func TestRenderAdminTicketViewShowsAssignee(t *testing.T) {
	adminID := int64(777)
	ticket := domain.Ticket{
		ID:        3,
		Theme:     "📢 Реклама",
		Status:    domain.TicketStatusInProgress,
		AdminID:   &adminID,
		CreatedAt: time.Now(),
	}
	owner := domain.User{ID: 42, Username: "seller"}

	view := RenderAdminTicketView(ticket, owner, nil)

	assert.Contains(t, view, "Назначен: 777")
	assert.Contains(t, view, "@seller")
}

func TestRenderUserCardBanned(t *testing.T) {
	card := RenderUserCard(domain.User{ID: 5, Username: "spammer", Privilege: domain.PrivilegeUser, Banned: true})

	assert.Contains(t, card, "@spammer")
	assert.Contains(t, card, "⛔️ Заблокирован")
}
