package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/domain"
	"github.com/baraholka/marketbot/internal/parse"
	"github.com/baraholka/marketbot/internal/repository"
	"github.com/baraholka/marketbot/internal/telegram"
	"github.com/baraholka/marketbot/pkg/util"
)

// PostService publishes marketplace listings to the channel.
type PostService struct {
	posts     repository.PostRepository
	users     *UserService
	transport telegram.Transport
	logger    *zap.Logger
	channelID int64
}

// PostDependencies bundles collaborators for post service.
type PostDependencies struct {
	PostRepo  repository.PostRepository
	Users     *UserService
	Transport telegram.Transport
	Logger    *zap.Logger
	Telegram  config.TelegramConfig
}

// NewPostService constructs the service.
func NewPostService(deps PostDependencies) *PostService {
	return &PostService{
		posts:     deps.PostRepo,
		users:     deps.Users,
		transport: deps.Transport,
		logger:    deps.Logger,
		channelID: deps.Telegram.ChannelID,
	}
}

// ListingInput is the completed sell form.
type ListingInput struct {
	PhotoID     string
	Title       string
	RawPrice    string
	Description string
}

// PublishListing validates the form, stores the listing and posts it to
// the channel. The cooldown gate depends on the seller's tier.
func (s *PostService) PublishListing(ctx context.Context, user *domain.User, input ListingInput) (*domain.Post, error) {
	if user.Banned {
		return nil, util.NewForbidden("banned accounts cannot publish listings")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, util.NewValidationError("listing title is required", nil)
	}
	price := parse.ParsePrice(input.RawPrice)
	if price.Kind == parse.PriceInvalid {
		return nil, util.NewValidationError("price not recognized", map[string]any{"raw": input.RawPrice})
	}
	if ok, remaining := s.users.CanPost(user); !ok {
		return nil, util.NewValidationError(
			fmt.Sprintf("cooldown active, %d min left", int(remaining.Minutes())+1),
			map[string]any{"remaining": remaining.String()})
	}

	post := &domain.Post{
		UserID:      user.ID,
		PhotoID:     input.PhotoID,
		Title:       title,
		Price:       price.Display(),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.PostStatusActive,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, util.ToDomainError(err)
	}
	if err := s.users.RecordPost(ctx, user); err != nil {
		return nil, err
	}

	if s.channelID != 0 {
		caption := telegram.RenderPostPreview(post.Title, post.Price, post.Description, user.DisplayName())
		var err error
		if post.PhotoID != "" {
			err = s.transport.SendPhoto(ctx, s.channelID, post.PhotoID, caption)
		} else {
			err = s.transport.SendText(ctx, s.channelID, caption)
		}
		if err != nil {
			// The listing is stored either way; channel delivery is retried
			// manually by an admin if the channel was misconfigured.
			s.logger.Warn("channel publish failed", zap.Int64("post_id", post.ID), zap.Error(err))
		}
	}
	return post, nil
}
