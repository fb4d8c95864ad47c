package plan

import (
	"testing"
	"time"

	"github.com/dropDatabas3/mailveil/internal/store/core"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func eval() Evaluator {
	return Evaluator{Now: func() time.Time { return now }, FreeAliasLimit: 3}
}

func trialUser(expiresIn time.Duration) *core.User {
	exp := now.Add(expiresIn)
	return &core.User{Plan: core.PlanTrial, PlanExpiration: &exp}
}

func TestShouldPromptUpgrade(t *testing.T) {
	e := eval()

	tests := []struct {
		name string
		user *core.User
		want bool
	}{
		{"free always prompts", &core.User{Plan: core.PlanFree}, true},
		{"monthly never prompts", &core.User{Plan: core.PlanMonthly}, false},
		{"yearly never prompts", &core.User{Plan: core.PlanYearly}, false},
		{"trial with 8 days left", trialUser(8 * 24 * time.Hour), false},
		{"trial with 6 days left", trialUser(6 * 24 * time.Hour), true},
		{"expired trial", trialUser(-time.Hour), true},
		{"trial without expiration", &core.User{Plan: core.PlanTrial}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.ShouldPromptUpgrade(tc.user))
		})
	}
}

func TestCanCreateAlias(t *testing.T) {
	e := eval()

	tests := []struct {
		name     string
		user     *core.User
		existing int
		want     bool
	}{
		{"free under limit", &core.User{Plan: core.PlanFree}, 2, true},
		{"free at limit", &core.User{Plan: core.PlanFree}, 3, false},
		{"free over limit", &core.User{Plan: core.PlanFree}, 5, false},
		{"monthly ignores limit", &core.User{Plan: core.PlanMonthly}, 100, true},
		{"active trial ignores limit", trialUser(24 * time.Hour), 100, true},
		{"expired trial falls back to quota", trialUser(-time.Hour), 3, false},
		{"expired trial under quota", trialUser(-time.Hour), 2, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.CanCreateAlias(tc.user, tc.existing))
		})
	}
}

func TestEntitled(t *testing.T) {
	e := eval()

	assert.True(t, e.Entitled(&core.User{Plan: core.PlanYearly}))
	assert.True(t, e.Entitled(trialUser(time.Minute)))
	assert.False(t, e.Entitled(trialUser(-time.Minute)))
	assert.False(t, e.Entitled(&core.User{Plan: core.PlanFree}))
}
