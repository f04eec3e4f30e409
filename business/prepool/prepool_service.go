package prepool

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"welfareBot/business/policy"
	"welfareBot/business/user"
	"welfareBot/domain"
	"welfareBot/pkg/logger"
	"welfareBot/pkg/metrics"
)

type Repository interface {
	FindByUser(ctx context.Context, userID uint) ([]domain.PreRecommendation, error)
	// ReplaceByUser deletes the user's pool and inserts entries atomically.
	ReplaceByUser(ctx context.Context, userID uint, entries []domain.PreRecommendation) error
}

type CatalogReader interface {
	All() []domain.Benefit
}

type Service struct {
	repo    Repository
	catalog CatalogReader
	policy  *policy.Table
	now     func() time.Time
}

func NewService(repo Repository, catalog CatalogReader, table *policy.Table) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		policy:  table,
		now:     time.Now,
	}
}

// BuildPool scores every addressable catalog benefit for the given base tags
// and returns the best PoolSize entries. It does not touch storage.
func (s *Service) BuildPool(ctx context.Context, u *domain.User, baseTags []string) ([]domain.PreRecommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	engine := s.policy.Engine()
	now := s.now()

	var userID *uint
	if u != nil {
		id := u.ID
		userID = &id
	}

	tags := distinct(baseTags)
	entries := make([]domain.PreRecommendation, 0, s.catalogSize())
	for _, b := range s.catalog.All() {
		if b.BenefitID == "" {
			continue
		}

		score := engine.PoolBaseScore
		categories := s.policy.ResolveCategories(b.Category)
		for _, tag := range tags {
			rule, ok := s.policy.BaseTagRule(tag)
			if ok && rule.AppliesTo(categories) {
				score += engine.PoolTagIncrement
			}
		}

		entries = append(entries, domain.PreRecommendation{
			UserID:    userID,
			BenefitID: b.BenefitID,
			BaseScore: math.Min(score, 1.0),
			CreatedAt: now,
		})
	}

	// stable: equal scores keep catalog order
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].BaseScore > entries[j].BaseScore
	})

	if len(entries) > engine.PoolSize {
		entries = entries[:engine.PoolSize]
	}
	return entries, nil
}

// CreateInitialPool replaces whatever pool the user had with a fresh one.
func (s *Service) CreateInitialPool(ctx context.Context, u *domain.User, baseTags []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if u == nil {
		return nil
	}

	entries, err := s.BuildPool(ctx, u, baseTags)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceByUser(ctx, u.ID, entries); err != nil {
		return fmt.Errorf("replace pre-recommendation pool: %w", err)
	}

	metrics.PoolRebuilds.Inc()
	logger.Debug("pre_recommendation_pool_built",
		"user_id", u.ID,
		"base_tags", baseTags,
		"entries", len(entries),
	)
	return nil
}

// GetPool returns the user's stored pool, building and persisting it first
// when none exists. A nil user gets the anonymous default pool.
func (s *Service) GetPool(ctx context.Context, u *domain.User) ([]domain.PreRecommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if u == nil {
		return s.BuildPool(ctx, nil, nil)
	}

	pool, err := s.repo.FindByUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("load pre-recommendation pool: %w", err)
	}
	if len(pool) > 0 {
		return pool, nil
	}

	if err := s.CreateInitialPool(ctx, u, user.ParseBaseTags(*u)); err != nil {
		return nil, err
	}

	pool, err = s.repo.FindByUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("reload pre-recommendation pool: %w", err)
	}
	return pool, nil
}

func (s *Service) catalogSize() int {
	if c, ok := s.catalog.(interface{ Len() int }); ok {
		return c.Len()
	}
	return 0
}

func distinct(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		key := policy.Normalize(t)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
