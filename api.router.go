package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"runtime"
	"runtime/debug"

	_ "github.com/jeamon/books-graphql/docs"
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
)

// MiddlewareMap contains middlwares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// SetupRoutes injects graphql and ops related endpoints if required.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.HandleOPTIONS = true
	router.GlobalOPTIONS = PreflightHandler()
	router.NotFound = api.NotFound()
	api.SetupGraphQLRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	handle(router, http.MethodGet, "/swagger/*any", m.public(OpsHandlerWrapper(httpswagger.WrapHandler)))
	return router
}

// SetupGraphQLRoutes injects the public endpoints.
func (api *APIHandler) SetupGraphQLRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	handle(router, http.MethodGet, "/", m.public(api.Index))
	handle(router, http.MethodGet, "/status", m.public(api.Status))
	handle(router, http.MethodGet, "/v1/schema", m.public(api.GetSchema))
	handle(router, http.MethodGet, api.config.GraphQL.Path, m.public(api.GraphQL))
	handle(router, http.MethodPost, api.config.GraphQL.Path, m.public(api.GraphQL))
	if api.config.GraphQL.PlaygroundEnable {
		handle(router, http.MethodGet, api.config.GraphQL.PlaygroundPath, m.public(api.Playground()))
	}
	return router
}

// SetupOpsRoutes injects internal operations related endpoints.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	handle(router, http.MethodGet, "/ops/configs", m.ops(api.GetConfigs))
	handle(router, http.MethodGet, "/ops/stats", m.ops(api.GetStatistics))
	handle(router, http.MethodGet, "/ops/maintenance", m.ops(api.Maintenance))
	handle(router, http.MethodGet, "/ops/debug/vars", m.ops(GetMemStats))
	handle(router, http.MethodGet, "/ops/debug/gc", m.ops(api.RuntimeTask("runtime.GC", runtime.GC)))
	handle(router, http.MethodGet, "/ops/debug/fos", m.ops(api.RuntimeTask("debug.FreeOSMemory", debug.FreeOSMemory)))
	if api.metrics != nil {
		handle(router, http.MethodGet, "/ops/metrics", m.ops(api.metrics.Handler()))
	}

	if api.config.ProfilerEndpointsEnable {
		handle(router, http.MethodGet, "/ops/debug/pprof/", m.ops(OpsHandlerWrapper(http.HandlerFunc(pprof.Index))))
		handle(router, http.MethodGet, "/ops/debug/pprof/profile", m.ops(OpsHandlerWrapper(http.HandlerFunc(pprof.Profile))))
		handle(router, http.MethodGet, "/ops/debug/pprof/trace", m.ops(OpsHandlerWrapper(http.HandlerFunc(pprof.Trace))))
		handle(router, http.MethodGet, "/ops/debug/pprof/symbol", m.ops(OpsHandlerWrapper(http.HandlerFunc(pprof.Symbol))))
		handle(router, http.MethodGet, "/ops/debug/pprof/cmdline", m.ops(OpsHandlerWrapper(http.HandlerFunc(pprof.Cmdline))))
		for _, name := range []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"} {
			handle(router, http.MethodGet, "/ops/debug/pprof/"+name, m.ops(OpsHandlerWrapper(pprof.Handler(name))))
		}
	}

	return router
}

// handle registers h under the pattern and exposes that pattern to the
// middlewares through the request context. Metrics use it as route label.
func handle(router *httprouter.Router, method, pattern string, h httprouter.Handle) {
	router.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		h(w, r.WithContext(context.WithValue(r.Context(), RouteContextKey, pattern)), ps)
	})
}

// OpsHandlerWrapper adapts a standard http.Handler to the router signature.
func OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}
