// Package server runs the edge HTTP server.
//
// The server mounts the operational endpoints next to the router:
//
//	/health    liveness
//	/ready     readiness (503 until every registered check passes)
//	/version   build information
//	/metrics   Prometheus exposition (path configurable)
//	/          everything else, handed to the router
//
// and wraps the mux in the middleware chain
//
//	Recovery(Logging(RequestID(Tracing(CORS(mux)))))
//
// # Shutdown
//
// Shutdown runs in a fixed order under one timeout: stop accepting and
// drain in-flight requests, wait for the proxy's pending cache writes, then
// run the OnShutdown hooks (pruner, tracer, cache store) in registration
// order.
//
//	srv := server.New(server.Options{
//	    Config:  cfg.Server,
//	    Router:  rt,
//	    Drainer: p,
//	    Health:  checker,
//	})
//	srv.OnShutdown("cache", func(context.Context) error { return store.Close() })
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
