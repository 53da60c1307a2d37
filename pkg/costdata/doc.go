// Package costdata defines the core data model shared by the fetch pipeline,
// analytics engine, and alert policy.
//
// # Overview
//
// The package contains plain value types with no behavior beyond construction
// and derivation helpers:
//
//   - DailyCost / ServiceCost / DailyServiceCost: provider-derived cost records
//   - CacheEntry: a wholesale snapshot of one profile's month-to-date costs
//   - ProfileBudget: per-profile budget configuration with lazy defaults
//   - MonthTotal: one (profile, month) historical data point
//   - Anomaly: a detected spending deviation
//   - SentAlert: an audit record for a delivered notification
//
// # Immutability
//
// CacheEntry values are created once per successful fetch and never mutated
// afterward. Readers always observe a complete snapshot; replacement happens
// wholesale at the cache layer.
package costdata
