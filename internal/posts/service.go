package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/postboard/postboard/internal/auth"
	"github.com/postboard/postboard/internal/shared"
)

// Service coordinates post use-cases.
type Service struct {
	repo     Repository
	likes    Likes
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService constructs a post Service.
func NewService(repo Repository, likes Likes, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, likes: likes, logger: logger, validate: validator.New()}
}

// Create stores a new post authored by the given account.
func (s *Service) Create(ctx context.Context, author *auth.Account, in CreatePostInput) (*Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: title and content are required", shared.ErrValidation)
	}
	return s.repo.Create(ctx, Post{AuthorID: author.ID, Title: in.Title, Content: in.Content})
}

// Get returns a post with its like count. When viewer is non-nil the result
// reports whether the viewer liked the post.
func (s *Service) Get(ctx context.Context, viewer *auth.Account, id int64) (*PostView, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.likes.Count(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &PostView{Post: *post, LikeCount: count}
	if viewer != nil {
		liked, err := s.likes.Has(ctx, id, viewer.ID)
		if err != nil {
			return nil, err
		}
		view.UserLiked = &liked
	}
	return view, nil
}

// Delete removes a post. Only its author may delete it.
func (s *Service) Delete(ctx context.Context, actor *auth.Account, id int64) error {
	if err := s.repo.DeleteOwned(ctx, id, actor.ID); err != nil {
		return err
	}
	if err := s.likes.Clear(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "clear likes after delete", slog.Int64("post_id", id), slog.Any("error", err))
	}
	return nil
}

// ToggleLike likes the post for actor, or removes the like if present.
func (s *Service) ToggleLike(ctx context.Context, actor *auth.Account, id int64) (LikeResult, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return LikeResult{}, err
		}
		return LikeResult{}, fmt.Errorf("posts: load for like: %w", err)
	}
	return s.likes.Toggle(ctx, id, actor.ID)
}
