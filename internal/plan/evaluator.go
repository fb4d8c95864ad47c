// Package plan evaluates subscription entitlements: alias quota and
// upgrade prompting. Time is injected so expiry boundaries are testable.
package plan

import (
	"time"

	"github.com/dropDatabas3/mailveil/internal/store/core"
)

// upgradeWindow is how close to trial expiry the upgrade prompt kicks in.
const upgradeWindow = 7 * 24 * time.Hour

// Evaluator answers plan questions for a user. Zero value works with
// real time and no free-alias quota; wire FreeAliasLimit from config.
type Evaluator struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// FreeAliasLimit is the alias ceiling for non-premium users.
	FreeAliasLimit int
}

func (e Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// InTrial reports whether the user is on a trial that has not expired.
func (e Evaluator) InTrial(u *core.User) bool {
	if u.Plan != core.PlanTrial || u.PlanExpiration == nil {
		return false
	}
	return e.now().Before(*u.PlanExpiration)
}

// Entitled reports whether the user currently has premium entitlements,
// either through a paid plan or an active trial.
func (e Evaluator) Entitled(u *core.User) bool {
	return u.Plan.Premium() || e.InTrial(u)
}

// CanCreateAlias reports whether the user may create one more alias given
// how many they already have. Entitled users have no ceiling.
func (e Evaluator) CanCreateAlias(u *core.User, existing int) bool {
	if e.Entitled(u) {
		return true
	}
	return existing < e.FreeAliasLimit
}

// ShouldPromptUpgrade reports whether the UI should nudge the user toward
// a paid plan. Free users always get the nudge. Trial users get it once
// the trial is inside the upgrade window or already over. Paid users never.
func (e Evaluator) ShouldPromptUpgrade(u *core.User) bool {
	switch u.Plan {
	case core.PlanMonthly, core.PlanYearly:
		return false
	case core.PlanTrial:
		if u.PlanExpiration == nil {
			return true
		}
		return e.now().Add(upgradeWindow).After(*u.PlanExpiration)
	default:
		return true
	}
}
