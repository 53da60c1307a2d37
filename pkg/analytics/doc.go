// Package analytics derives trend, month-end projection, and spending
// anomalies from a profile's cached cost series.
//
// All functions are pure: they take the daily/service series and a
// reference time and return freshly computed results. Anomaly lists are
// recomputed wholesale on every fetch; nothing accumulates between calls.
//
// Insufficient history and zero denominators are expected steady states,
// not errors. They resolve to neutral results: a stable trend, an
// undefined projection, an empty anomaly list.
package analytics
