package credits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduct(t *testing.T) {
	tests := []struct {
		name             string
		sub, top, cost   int
		wantSub, wantTop int
		wantErr          error
	}{
		{"subscription covers", 100, 20, 50, 50, 20, nil},
		{"spills into top-up", 30, 40, 50, 0, 20, nil},
		{"exact total", 10, 40, 50, 0, 0, nil},
		{"top-up only", 0, 60, 50, 0, 10, nil},
		{"zero cost", 5, 5, 0, 5, 5, nil},
		{"insufficient", 10, 10, 50, 10, 10, ErrInsufficientCredits},
		{"negative cost", 10, 10, -1, 10, 10, ErrNegativeCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, top, err := Deduct(tt.sub, tt.top, tt.cost)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSub, sub)
			assert.Equal(t, tt.wantTop, top)
		})
	}
}

func TestDeduct_Conservation(t *testing.T) {
	for sub := 0; sub <= 60; sub += 7 {
		for top := 0; top <= 60; top += 11 {
			for cost := 0; cost <= sub+top; cost += 3 {
				ns, nt, err := Deduct(sub, top, cost)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, ns, 0)
				assert.GreaterOrEqual(t, nt, 0)
				assert.Equal(t, sub+top-cost, ns+nt)
				if cost <= sub {
					assert.Equal(t, top, nt, "top-up touched before subscription was exhausted")
				}
			}
		}
	}
}

func TestHasEnoughCredits(t *testing.T) {
	assert.True(t, HasEnoughCredits(Balance{Subscription: 30, TopUp: 20}, 50))
	assert.False(t, HasEnoughCredits(Balance{Subscription: 30, TopUp: 19}, 50))
	assert.True(t, HasEnoughCredits(Balance{Unlimited: true}, 500))
}

func TestCostTable(t *testing.T) {
	assert.Equal(t, 50, DefaultCosts.Cost(OpBlogPost))
	assert.Equal(t, 10, DefaultCosts.Cost(OpPublish))
	assert.Equal(t, 0, DefaultCosts.Cost("unknown"))
}
