package recommendation

import (
	"context"

	"welfareBot/domain"
)

// EligibilityChecker decides if a benefit may be shown to a user at all,
// independently of its score.
type EligibilityChecker interface {
	IsEligible(ctx context.Context, user *domain.User, benefit domain.Benefit) (bool, error)
}

// AgeEligibilityChecker filters on the benefit's age bounds. Users without a
// recorded age, and anonymous callers, are never filtered.
type AgeEligibilityChecker struct{}

func (AgeEligibilityChecker) IsEligible(ctx context.Context, user *domain.User, benefit domain.Benefit) (bool, error) {
	if user == nil {
		return true, nil
	}
	return benefit.AllowsAge(user.Age), nil
}

// NoopEligibilityChecker allows everything.
type NoopEligibilityChecker struct{}

func (NoopEligibilityChecker) IsEligible(ctx context.Context, user *domain.User, benefit domain.Benefit) (bool, error) {
	return true, nil
}
