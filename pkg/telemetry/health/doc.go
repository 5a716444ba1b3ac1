// Package health implements liveness, readiness and version endpoints.
//
// Readiness checks are registered by the components that own a dependency
// (the edge cache, the asset source) and run concurrently on each probe.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("cache", func(ctx context.Context) error {
//		_, err := store.Len(ctx)
//		return err
//	})
//	mux.HandleFunc("/ready", checker.ReadinessHandler())
package health
