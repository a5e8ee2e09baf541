/*
Package metrics provides Prometheus counters and histograms for one
osmaug run: per-kind entity counts, pass durations, and an outcome
counter (committed, dry_run, error). Metrics are registered at package
init against the default registry and served over HTTP by the CLI when
--metrics-addr is set.
*/
package metrics
