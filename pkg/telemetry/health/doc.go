// Package health implements the liveness and readiness probes of the
// exceller service.
//
// Components register a check under their name; the readiness probe runs
// every check concurrently with a per-check timeout:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("schemas", func(ctx context.Context) error {
//		if len(store.List()) == 0 {
//			return errors.New("no schemas loaded")
//		}
//		return nil
//	})
//	mux.Handle("GET /healthz", checker.LivenessHandler())
//	mux.Handle("GET /readyz", checker.ReadinessHandler())
package health
