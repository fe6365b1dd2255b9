package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"burrow/internal/models"
	"burrow/internal/utils"
)

// CommentStore 评论相关存储
type CommentStore interface {
	PostByID(ctx context.Context, id uint) (*models.Post, error)
	CommentByID(ctx context.Context, id uint) (*models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
}

// CommentInput 评论表单
type CommentInput struct {
	PostID   uint   `form:"-"`
	Content  string `form:"content" validate:"required,max=10000"`
	ParentID string `form:"parent_id"`
}

type CommentService struct {
	store     CommentStore
	scores    ScoreScheduler
	maxDepth  int
	asciiOnly bool
}

// NewCommentService scores 可以为 nil
func NewCommentService(store CommentStore, scores ScoreScheduler, maxDepth int, asciiOnly bool) *CommentService {
	return &CommentService{store: store, scores: scores, maxDepth: maxDepth, asciiOnly: asciiOnly}
}

// Create 发表评论。父评论必须存在且属于同一帖子，深度 = 父深度 + 1，不能超过上限。
func (s *CommentService) Create(ctx context.Context, in CommentInput) (*models.Comment, error) {
	const op = "services.CommentService.Create"

	in.Content = strings.TrimSpace(in.Content)
	if s.asciiOnly {
		in.Content = strings.TrimSpace(utils.StripToASCII(in.Content))
	}
	in.ParentID = strings.TrimSpace(in.ParentID)
	input := map[string]string{
		"post_id":   fmt.Sprint(in.PostID),
		"content":   in.Content,
		"parent_id": in.ParentID,
	}

	if in.PostID == 0 {
		return nil, invalid("post_id", "Post ID is required", input)
	}
	if err := validateStruct(in, input); err != nil {
		return nil, err
	}

	if _, err := s.store.PostByID(ctx, in.PostID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comment := &models.Comment{
		PostID:  in.PostID,
		Content: in.Content,
	}

	if in.ParentID != "" {
		parentID := utils.ParseID(in.ParentID)
		if parentID == 0 {
			return nil, invalid("parent_id", "Invalid parent comment", input)
		}
		parent, err := s.store.CommentByID(ctx, parentID)
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("parent_id", "Invalid parent comment", input)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if parent.PostID != in.PostID {
			return nil, invalid("parent_id", "Invalid parent comment", input)
		}
		if parent.Depth+1 > s.maxDepth {
			return nil, invalid("parent_id", fmt.Sprintf("Maximum nesting depth of %d reached", s.maxDepth), input)
		}
		comment.ParentID = &parent.ID
		comment.Depth = parent.Depth + 1
	}

	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// 评论数参与热度
	if s.scores != nil {
		s.scores.ScheduleUpdate(in.PostID)
	}

	utils.Logger(ctx).Info("comment created", "post_id", in.PostID, "comment_id", comment.ID, "depth", comment.Depth)
	return comment, nil
}
