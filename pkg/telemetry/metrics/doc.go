// Package metrics provides Prometheus metrics for exceller.
//
// A Collector registers every metric with its own registry and is passed
// to the components that report into it:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	// per node resolution, through transform.WithObserver
//	t, err := transform.New(node, transform.WithObserver(collector))
//
//	// per run, by the caller that owns the schema name
//	collector.RecordRun("invoice", time.Since(start), err)
//
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Exposed metrics, with the default "exceller" namespace:
//
//	exceller_transform_runs_total{schema,status}
//	exceller_transform_duration_seconds{schema}
//	exceller_transform_errors_total{schema,kind}
//	exceller_node_resolutions_total{kind}
//	exceller_node_resolution_errors_total{kind}
//	exceller_node_resolution_duration_seconds{kind}
//	exceller_schema_reloads_total{status}
//	exceller_schemas_loaded
//	exceller_history_writes_total{status}
//	exceller_history_pruned_total
//
// Schema names are caller controlled, so at most 1000 distinct names get
// their own series; the rest are aggregated under "other".
package metrics
