package db

import (
	"context"
	"fmt"

	"burrow/internal/models"
)

func (s *Store) CommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, fmt.Errorf("db.Store.CommentByID: %w", mapErr(err))
	}
	return &comment, nil
}

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("db.Store.CreateComment: %w", mapErr(err))
	}
	return nil
}

func (s *Store) CreateGuestbookEntry(ctx context.Context, entry *models.GuestbookEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("db.Store.CreateGuestbookEntry: %w", err)
	}
	return nil
}

func (s *Store) ListGuestbook(ctx context.Context, limit int) ([]models.GuestbookEntry, error) {
	var entries []models.GuestbookEntry
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("db.Store.ListGuestbook: %w", err)
	}
	return entries, nil
}

// CreateUser 用户名重复返回 ErrConflict
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("db.Store.CreateUser: %w", mapErr(err))
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("db.Store.UserByUsername: %w", mapErr(err))
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("db.Store.UserByID: %w", mapErr(err))
	}
	return &user, nil
}
