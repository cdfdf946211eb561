// Package httpserver provides the reusable HTTP server shell for the review
// ledger binaries.
//
// BaseServer bundles the concerns every deployment needs around the ledger
// API itself: standard middleware, health and readiness endpoints, drain
// control for load balancers, an optional Prometheus listener and graceful
// shutdown. Components mount their routes through the RouteRegistrar
// interface.
//
// # Health and Diagnostics
//
// Every server built on BaseServer exposes:
//
//   - /livez - liveness check
//   - /readyz - readiness check, 503 while draining
//   - /drain, /undrain - readiness control for rolling restarts
//   - /debug - pprof endpoints when EnablePprof is set
//
// # Usage
//
//	srv, err := httpserver.New(cfg, ledgerService)
//	if err != nil {
//	    return err
//	}
//	srv.RunInBackground()
//	defer srv.Shutdown()
package httpserver
