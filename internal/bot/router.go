package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/observability"
	"github.com/baraholka/marketbot/internal/service"
	"github.com/baraholka/marketbot/internal/session"
	"github.com/baraholka/marketbot/internal/telegram"
	"github.com/baraholka/marketbot/pkg/util"
)

// Router dispatches incoming updates to handlers. Dispatch order is
// context-mode first: an actor in a live chat or mid-form has their text
// routed by their conversation context, not by global commands.
type Router struct {
	tickets     *service.TicketService
	chats       *service.ChatService
	users       *service.UserService
	posts       *service.PostService
	sessions    session.Store
	transport   telegram.Transport
	logger      *zap.Logger
	metrics     *observability.Metrics
	cfg         *config.Config
	botUsername string
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Tickets     *service.TicketService
	Chats       *service.ChatService
	Users       *service.UserService
	Posts       *service.PostService
	Sessions    session.Store
	Transport   telegram.Transport
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Config      *config.Config
	BotUsername string
}

// NewRouter constructs the router.
func NewRouter(deps RouterDependencies) *Router {
	return &Router{
		tickets:     deps.Tickets,
		chats:       deps.Chats,
		users:       deps.Users,
		posts:       deps.Posts,
		sessions:    deps.Sessions,
		transport:   deps.Transport,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		cfg:         deps.Config,
		botUsername: deps.BotUsername,
	}
}

// ActorID extracts the chat the update belongs to; zero means the update
// carries nothing routable.
func ActorID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	default:
		return 0
	}
}

// HandleUpdate processes one update to completion. Handler errors are
// converted into a short notice for the actor; they never propagate.
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		r.metrics.RecordUpdate("callback")
		if err := r.handleCallback(ctx, update.CallbackQuery); err != nil {
			r.notifyError(ctx, update.CallbackQuery.From.ID, err)
		}
	case update.Message != nil:
		r.metrics.RecordUpdate("message")
		if err := r.handleMessage(ctx, update.Message); err != nil {
			r.notifyError(ctx, update.Message.Chat.ID, err)
		}
	}
}

func (r *Router) isAdmin(chatID int64) bool {
	return r.cfg.Telegram.IsAdmin(chatID)
}

// notifyError maps a failure to the notice the actor sees. The full error
// goes to the log, never to the chat.
func (r *Router) notifyError(ctx context.Context, chatID int64, err error) {
	domainErr := util.ToDomainError(err)
	r.metrics.RecordError(domainErr.Code)
	var text string
	switch domainErr.Code {
	case util.CodeNotFound:
		text = "Не найдено. Возможно, обращение уже удалено."
	case util.CodeForbidden:
		text = "⛔️ Действие недоступно."
	case util.CodeValidation:
		text = "Некорректный ввод. Попробуйте ещё раз."
	case util.CodeUnavailable:
		text = "⚠️ Не удалось доставить сообщение. Оно сохранено в истории обращения."
	case util.CodeSessionDesync:
		text = "Сессия устарела. Вернитесь в главное меню: /start"
	default:
		text = "Произошла ошибка. Попробуйте позже."
	}
	r.logger.Warn("handler error",
		zap.Int64("chat_id", chatID),
		zap.String("code", domainErr.Code),
		zap.Error(domainErr))
	if sendErr := r.transport.SendText(ctx, chatID, text); sendErr != nil {
		r.logger.Debug("error notice not delivered", zap.Int64("chat_id", chatID), zap.Error(sendErr))
	}
}
