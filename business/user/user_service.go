package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"welfareBot/domain"
	"welfareBot/pkg/logger"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

var (
	ErrUserNotFound = domain.ErrUserNotFound
	// ErrInvalidRegister wraps every validation failure of Register.
	ErrInvalidRegister = errors.New("invalid register request")
)

// UserRepository contract interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByName(ctx context.Context, name string) (domain.User, error)
}

// PoolInitializer builds the first candidate pool of a new user.
type PoolInitializer interface {
	CreateInitialPool(ctx context.Context, user *domain.User, baseTags []string) error
}

type RegisterInput struct {
	Name      string   `validate:"required,max=50"`
	Age       *int     `validate:"omitempty,min=0,max=130"`
	Residence string   `validate:"max=100"`
	BaseTags  []string `validate:"dive,max=30"`
}

type userService struct {
	userRepo UserRepository
	pool     PoolInitializer
	validate *validator.Validate
}

func NewUserService(userRepo UserRepository, pool PoolInitializer, validate *validator.Validate) *userService {
	return &userService{
		userRepo: userRepo,
		pool:     pool,
		validate: validate,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, fmt.Errorf("context error: %w", err)
	}

	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		logger.Error("Failed to validate user register", "error", err)
		return domain.UserProfile{}, fmt.Errorf("%w: %w", ErrInvalidRegister, err)
	}

	tags := cleanTags(in.BaseTags)
	raw, err := json.Marshal(tags)
	if err != nil {
		raw = []byte("[]")
	}

	newUser := domain.User{
		Name:      in.Name,
		Age:       in.Age,
		Residence: strings.TrimSpace(in.Residence),
		BaseTags:  datatypes.JSON(raw),
	}

	if err := s.userRepo.Create(ctx, &newUser); err != nil {
		logger.Error("Failed to create new user", "error", err)
		return domain.UserProfile{}, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.pool.CreateInitialPool(ctx, &newUser, tags); err != nil {
		logger.Error("Failed to create initial pool", "user_id", newUser.ID, "error", err)
		return domain.UserProfile{}, fmt.Errorf("failed to create initial pool: %w", err)
	}

	logger.Info("user registered", "user_id", newUser.ID, "base_tags", len(tags))

	return ToProfile(newUser), nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, fmt.Errorf("context error: %w", err)
	}
	if id == 0 {
		return domain.UserProfile{}, ErrUserNotFound
	}

	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return domain.UserProfile{}, err
	}

	return ToProfile(u), nil
}

// LoginByName is the name-only sign in used by the demo front end.
func (s *userService) LoginByName(ctx context.Context, name string) (domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, fmt.Errorf("context error: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.UserProfile{}, ErrUserNotFound
	}

	u, err := s.userRepo.FindByName(ctx, name)
	if err != nil {
		return domain.UserProfile{}, err
	}

	return ToProfile(u), nil
}

func ToProfile(u domain.User) domain.UserProfile {
	return domain.UserProfile{
		ID:                   u.ID,
		Name:                 u.Name,
		Age:                  u.Age,
		Residence:            u.Residence,
		BaseTags:             ParseBaseTags(u),
		RecommendationIssued: u.RecommendationIssued,
		LastRecommendationAt: u.LastRecommendationAt,
	}
}

// ParseBaseTags decodes the stored tag list. A broken column degrades to an
// empty list.
func ParseBaseTags(u domain.User) []string {
	if len(u.BaseTags) == 0 {
		return []string{}
	}

	var tags []string
	if err := json.Unmarshal(u.BaseTags, &tags); err != nil {
		logger.Warn("base tags unreadable, using empty list", "user_id", u.ID, "error", err)
		return []string{}
	}
	if tags == nil {
		return []string{}
	}
	return tags
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
