package costdata

// DefaultAPIBudget is the assumed monthly allowance for metered Cost
// Explorer calls, in USD. Each GetCostAndUsage call costs about $0.01.
const DefaultAPIBudget = 5.0

// DefaultAlertThreshold is the budget fraction at which threshold alerts
// fire when a profile has no explicit setting.
const DefaultAlertThreshold = 0.8

// DefaultRefreshIntervalMinutes is the fallback automatic refresh cadence.
const DefaultRefreshIntervalMinutes = 60

// MinRefreshIntervalMinutes is the floor for the configured cadence.
const MinRefreshIntervalMinutes = 5

// ProfileBudget holds the per-profile budget configuration.
//
// A budget record is created lazily with defaults the first time a profile
// is seen and persisted thereafter. It is mutated only through explicit
// updates, with one exception: a legacy record whose APIBudget was stored
// as zero is migrated to DefaultAPIBudget on load.
type ProfileBudget struct {
	// Profile is the profile this budget applies to.
	Profile Profile `yaml:"profile"`

	// MonthlyBudget is the spend budget in USD. Zero means no budget is
	// set, which disables budget-based cache tightening and alerts.
	MonthlyBudget float64 `yaml:"monthly_budget"`

	// AlertThreshold is the fraction of budget (0..1] at which a
	// threshold alert fires.
	AlertThreshold float64 `yaml:"alert_threshold"`

	// APIBudget is the informational monthly allowance for metered API
	// calls, in USD.
	APIBudget float64 `yaml:"api_budget"`

	// RefreshIntervalMinutes is the configured automatic refresh cadence.
	RefreshIntervalMinutes int `yaml:"refresh_interval_minutes"`
}

// DefaultBudget returns the lazily-created budget for a new profile.
func DefaultBudget(profile Profile) *ProfileBudget {
	return &ProfileBudget{
		Profile:                profile,
		MonthlyBudget:          0,
		AlertThreshold:         DefaultAlertThreshold,
		APIBudget:              DefaultAPIBudget,
		RefreshIntervalMinutes: DefaultRefreshIntervalMinutes,
	}
}

// HasBudget reports whether a monthly budget is configured.
func (b *ProfileBudget) HasBudget() bool {
	return b != nil && b.MonthlyBudget > 0
}

// UsedFraction returns spent/MonthlyBudget, or 0 if no budget is set.
func (b *ProfileBudget) UsedFraction(spent float64) float64 {
	if !b.HasBudget() {
		return 0
	}
	return spent / b.MonthlyBudget
}

// Remaining returns the unspent budget, which may be negative when the
// budget is exceeded. Returns 0 if no budget is set.
func (b *ProfileBudget) Remaining(spent float64) float64 {
	if !b.HasBudget() {
		return 0
	}
	return b.MonthlyBudget - spent
}

// Migrate fixes legacy zero-value fields in place and reports whether
// anything changed. Records written by old versions stored APIBudget as
// zero; a zero alert threshold or refresh interval is likewise treated as
// unset.
func (b *ProfileBudget) Migrate() bool {
	changed := false
	if b.APIBudget == 0 {
		b.APIBudget = DefaultAPIBudget
		changed = true
	}
	if b.AlertThreshold <= 0 || b.AlertThreshold > 1 {
		b.AlertThreshold = DefaultAlertThreshold
		changed = true
	}
	if b.RefreshIntervalMinutes < MinRefreshIntervalMinutes {
		b.RefreshIntervalMinutes = DefaultRefreshIntervalMinutes
		changed = true
	}
	return changed
}
