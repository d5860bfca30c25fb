/*
Package observability turns engine lifecycle events into Prometheus metrics.

NewMetrics registers the collectors and returns a Metrics whose Hooks can be passed to a model
with toppling.WithHooks. Hooks compose with domain.LifecycleHooks.Merge, so logging and
metrics can watch the same run.
*/
package observability
