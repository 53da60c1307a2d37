// Package alert decides whether budget and anomaly conditions warrant a
// notification, enforces per-(profile, type) cooldowns against the audit
// log, and delivers through pluggable sinks.
//
// The policy is evaluated as a synchronous continuation of every
// successful fetch. Delivery is fire-and-forget from the pipeline's
// perspective: sink errors are logged, never propagated into the fetch
// result. When notification permission is not granted the policy still
// runs its checks so the decision is observable, but delivery is skipped.
package alert
