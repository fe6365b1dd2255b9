package services

import (
	"context"
	"fmt"
	"strings"

	"burrow/internal/models"
	"burrow/internal/utils"
)

type GuestbookStore interface {
	CreateGuestbookEntry(ctx context.Context, entry *models.GuestbookEntry) error
	ListGuestbook(ctx context.Context, limit int) ([]models.GuestbookEntry, error)
}

// GuestbookInput 留言表单
type GuestbookInput struct {
	Name    string `form:"name" validate:"required,max=100"`
	Message string `form:"message" validate:"required,max=1000"`
}

const guestbookLimit = 50

type GuestbookService struct {
	store     GuestbookStore
	asciiOnly bool
}

func NewGuestbookService(store GuestbookStore, asciiOnly bool) *GuestbookService {
	return &GuestbookService{store: store, asciiOnly: asciiOnly}
}

func (s *GuestbookService) Sign(ctx context.Context, in GuestbookInput) (*models.GuestbookEntry, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Message = strings.TrimSpace(in.Message)
	if s.asciiOnly {
		in.Name = strings.TrimSpace(utils.StripToASCII(in.Name))
		in.Message = strings.TrimSpace(utils.StripToASCII(in.Message))
	}
	input := map[string]string{"name": in.Name, "message": in.Message}

	if err := validateStruct(in, input); err != nil {
		return nil, err
	}

	entry := &models.GuestbookEntry{Name: in.Name, Message: in.Message}
	if err := s.store.CreateGuestbookEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("services.GuestbookService.Sign: %w", err)
	}
	return entry, nil
}

// Latest 最新 50 条
func (s *GuestbookService) Latest(ctx context.Context) ([]models.GuestbookEntry, error) {
	entries, err := s.store.ListGuestbook(ctx, guestbookLimit)
	if err != nil {
		return nil, fmt.Errorf("services.GuestbookService.Latest: %w", err)
	}
	return entries, nil
}
