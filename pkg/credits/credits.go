// Package credits holds the per-operation cost table and the bucket split
// used when an account is charged.
package credits

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCredits is returned when both buckets together cannot
	// cover the cost.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrNegativeCost is returned for a cost below zero.
	ErrNegativeCost = errors.New("credit cost must not be negative")
)

// Operation names a chargeable action.
type Operation string

const (
	OpBlogPost    Operation = "blog_post"
	OpPublish     Operation = "publish"
	OpSocialPost  Operation = "social_post"
	OpVideoScript Operation = "video_script"
)

// CostTable is the fixed price of each operation.
type CostTable struct {
	BlogPost    int
	Publish     int
	SocialPost  int
	VideoScript int
}

// DefaultCosts is the standard price list.
var DefaultCosts = CostTable{BlogPost: 50, Publish: 10, SocialPost: 5, VideoScript: 20}

// Cost returns the price of op.
func (t CostTable) Cost(op Operation) int {
	switch op {
	case OpBlogPost:
		return t.BlogPost
	case OpPublish:
		return t.Publish
	case OpSocialPost:
		return t.SocialPost
	case OpVideoScript:
		return t.VideoScript
	}
	return 0
}

// Balance is an account's spendable credits.
type Balance struct {
	Subscription int  `json:"subscription"`
	TopUp        int  `json:"topUp"`
	Unlimited    bool `json:"unlimited"`
}

// Total is the sum of both buckets.
func (b Balance) Total() int {
	return b.Subscription + b.TopUp
}

// HasEnoughCredits reports whether balance covers cost.
func HasEnoughCredits(balance Balance, cost int) bool {
	return balance.Unlimited || balance.Total() >= cost
}

// Deduct takes cost from the subscription bucket first and the top-up bucket
// second. Neither bucket goes negative.
func Deduct(sub, topUp, cost int) (int, int, error) {
	if cost < 0 {
		return sub, topUp, ErrNegativeCost
	}
	if sub < 0 {
		sub = 0
	}
	if topUp < 0 {
		topUp = 0
	}
	if cost > sub+topUp {
		return sub, topUp, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredits, cost, sub+topUp)
	}

	fromSub := min(cost, sub)
	fromTop := cost - fromSub
	return sub - fromSub, topUp - fromTop, nil
}

// Ledger charges accounts. Implementations must apply the split atomically.
type Ledger interface {
	Balance(ctx context.Context, accountID string) (Balance, error)
	DeductCredits(ctx context.Context, accountID string, cost int, memo string) (Balance, error)
}
