package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/baraholka/marketbot/internal/domain"
	"github.com/baraholka/marketbot/internal/priority"
)

// TicketThemes are the subjects offered when opening a support ticket.
// Button payloads carry the slice index.
var TicketThemes = []string{
	"💰 Покупка привилегии",
	"📢 Реклама",
	"❓ Вопросы о боте",
	"⚠️ Жалоба на пользователя",
	"✉️ Другое",
}

const themePrefix = "ticket_theme_"

// Static payloads for buttons that act on the admin's currently selected
// user, so they carry no id of their own.
const (
	DataUserBan        = "user_ban"
	DataUserUnban      = "user_unban"
	DataUserReset      = "user_reset"
	DataUserCooldown   = "user_cooldown"
	DataUserPrivileges = "user_privileges"
	DataBackToMenu     = "back_to_menu"
	DataSellConfirm    = "sell_confirm"
	DataSellCancel     = "sell_cancel"
	DataMenuSell       = "menu_sell"
	DataMenuSupport    = "menu_support"
	DataMenuTickets    = "menu_tickets"
	DataMenuReferral   = "menu_referral"
	DataAdminTickets   = "admin_tickets"
	DataAdminSearchID  = "admin_search_id"
	DataAdminSearchTag = "admin_search_name"
	DataAdminStats     = "admin_stats"
)

// MainMenuKeyboard is the user's entry point.
func MainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 Продать", DataMenuSell),
			tgbotapi.NewInlineKeyboardButtonData("🛠 Поддержка", DataMenuSupport),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои обращения", DataMenuTickets),
			tgbotapi.NewInlineKeyboardButtonData("👥 Рефералы", DataMenuReferral),
		),
	)
}

// AdminPanelKeyboard is the admin's entry point.
func AdminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📬 Обращения", DataAdminTickets),
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", DataAdminStats),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Поиск по ID", DataAdminSearchID),
			tgbotapi.NewInlineKeyboardButtonData("🔎 Поиск по нику", DataAdminSearchTag),
		),
	)
}

// ThemeCallback decodes a theme button payload into a TicketThemes index.
func ThemeCallback(data string) (int, bool) {
	if !strings.HasPrefix(data, themePrefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(data, themePrefix))
	if err != nil || idx < 0 || idx >= len(TicketThemes) {
		return 0, false
	}
	return idx, true
}

// ThemeKeyboard offers one button per ticket subject.
func ThemeKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(TicketThemes))
	for i, theme := range TicketThemes {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(theme, themePrefix+strconv.Itoa(i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// UserTicketListKeyboard lists the actor's own open tickets.
func UserTicketListKeyboard(tickets []domain.Ticket) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tickets))
	for _, t := range tickets {
		label := fmt.Sprintf("📋 #%d %s", t.ID, t.Theme)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, CallbackData(ActionViewTicket, t.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// UserTicketKeyboard shows the actions an owner has on one ticket.
func UserTicketKeyboard(ticketID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Закрыть обращение", CallbackData(ActionCloseTicket, ticketID)),
		),
	)
}

// AdminTicketListKeyboard lists open tickets most urgent first with a
// priority marker on every row.
func AdminTicketListKeyboard(tickets []domain.Ticket) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tickets))
	for _, t := range tickets {
		icon := priority.Icon(priority.Classify(t.Theme))
		label := fmt.Sprintf("%s #%d %s", icon, t.ID, t.Theme)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, CallbackData(ActionAdminViewTicket, t.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// AdminTicketKeyboard shows the actions an admin has on one ticket. The
// claim button disappears once the ticket is already the viewer's.
func AdminTicketKeyboard(ticket domain.Ticket, viewerID int64) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if !ticket.AssignedTo(viewerID) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✋ Взять в работу", CallbackData(ActionAdminTake, ticket.ID)),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 Ответить", CallbackData(ActionReplyTicket, ticket.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 Профиль пользователя", CallbackData(ActionSelectUser, ticket.UserID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Закрыть обращение", CallbackData(ActionAdminClose, ticket.ID)),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ChatInviteKeyboard is attached to the invitation a user receives when
// an admin opens a live chat on their ticket.
func ChatInviteKeyboard(ticketID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 Начать чат", CallbackData(ActionStartChat, ticketID)),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Отклонить", CallbackData(ActionDeclineChat, ticketID)),
		),
	)
}

// ActiveChatKeyboard is shown to both sides while the relay is running.
func ActiveChatKeyboard(ticketID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔚 Завершить чат", CallbackData(ActionEndChat, ticketID)),
		),
	)
}

// PendingInviteKeyboard lets the inviting admin back out before the user
// responds.
func PendingInviteKeyboard(ticketID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚫 Отменить приглашение", CallbackData(ActionAdminCancelChat, ticketID)),
		),
	)
}

// SelectedUserKeyboard shows management actions for the selected account.
func SelectedUserKeyboard(banned bool) tgbotapi.InlineKeyboardMarkup {
	banButton := tgbotapi.NewInlineKeyboardButtonData("🚫 Забанить", DataUserBan)
	if banned {
		banButton = tgbotapi.NewInlineKeyboardButtonData("✅ Разбанить", DataUserUnban)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(banButton),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("♻️ Сбросить аккаунт", DataUserReset),
			tgbotapi.NewInlineKeyboardButtonData("⏱ Сбросить кулдаун", DataUserCooldown),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Выдать привилегию", DataUserPrivileges),
		),
	)
}

// PrivilegeKeyboard offers one button per grantable tier.
func PrivilegeKeyboard(names []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(names))
	for _, name := range names {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(name, ActionGrantPrivilege+"_"+name),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SellConfirmKeyboard closes the listing form.
func SellConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Опубликовать", DataSellConfirm),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", DataSellCancel),
		),
	)
}
