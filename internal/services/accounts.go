package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"burrow/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// UserStore 可选账号存储
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error // 用户名重复返回 ErrConflict
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

// CredentialsInput 注册/登录表单
type CredentialsInput struct {
	Username string `form:"username" validate:"required,min=3,max=50"`
	Password string `form:"password" validate:"required,min=6"`
}

// AccountService 可选账号。账号不参与投票身份，只用于设置页。
type AccountService struct {
	store UserStore
	cost  int
}

func NewAccountService(store UserStore) *AccountService {
	return &AccountService{store: store, cost: bcrypt.DefaultCost}
}

func (s *AccountService) Register(ctx context.Context, in CredentialsInput) (*models.User, error) {
	const op = "services.AccountService.Register"

	in.Username = strings.TrimSpace(in.Username)
	input := map[string]string{"username": in.Username}
	if err := validateStruct(in, input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{Username: in.Username, Password: string(hash)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, invalid("username", "Username is already taken", input)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *AccountService) Login(ctx context.Context, in CredentialsInput) (*models.User, error) {
	const op = "services.AccountService.Login"

	in.Username = strings.TrimSpace(in.Username)
	input := map[string]string{"username": in.Username}
	if in.Username == "" || in.Password == "" {
		return nil, invalid("username", "Username and password are required", input)
	}

	user, err := s.store.UserByUsername(ctx, in.Username)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid("username", "Invalid username or password", input)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, invalid("username", "Invalid username or password", input)
	}
	return user, nil
}

func (s *AccountService) User(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("services.AccountService.User: %w", err)
	}
	return user, nil
}
