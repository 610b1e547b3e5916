// Package apiserver 把 Registry 以 Kubernetes 风格的 REST API 暴露出来：
// /apis/{group}/{version}[/namespaces/{namespace}]/{resource}[/{name}]
package apiserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/fx147/operator-dispatcher/pkg/registry"
	"github.com/fx147/operator-dispatcher/pkg/util"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/klog/v2"
)

const defaultRequestTimeout = 30 * time.Second

// Config 是 API Server 的可选配置
type Config struct {
	// Gatherer 为 nil 时 /metrics 使用 prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
	// ReadyFunc 为 nil 时 /readyz 总是返回 ok
	ReadyFunc func() bool
	// RequestTimeout 为 0 时使用 30s
	RequestTimeout time.Duration
}

type server struct {
	registry  registry.Interface
	scheme    *runtime.Scheme
	resources map[schema.GroupVersionResource]schema.GroupVersionKind
	ready     func() bool
}

// NewServer 构建根路由。scheme 中注册的每个类型都会按 "小写 kind + s" 暴露为一个资源。
func NewServer(reg registry.Interface, scheme *runtime.Scheme, cfg Config) http.Handler {
	s := &server{
		registry:  reg,
		scheme:    scheme,
		resources: make(map[schema.GroupVersionResource]schema.GroupVersionKind),
		ready:     cfg.ReadyFunc,
	}
	for gvk := range scheme.AllKnownTypes() {
		if strings.HasSuffix(gvk.Kind, "List") {
			continue
		}
		s.resources[util.ResourceForKind(gvk)] = gvk
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, notFoundPath(r.URL.Path))
	})

	r.Route("/apis/{group}/{version}", func(api chi.Router) {
		api.Get("/{resource}", s.list)
		api.Get("/namespaces/{namespace}/{resource}", s.list)
		api.Post("/namespaces/{namespace}/{resource}", s.create)
		api.Get("/namespaces/{namespace}/{resource}/{name}", s.get)
		api.Put("/namespaces/{namespace}/{resource}/{name}", s.replace)
		api.Delete("/namespaces/{namespace}/{resource}/{name}", s.delete)
	})

	return r
}

func (s *server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil && !s.ready() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ok"))
}

// requestLogger 用 klog 记录每个请求
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		klog.V(4).InfoS("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"requestID", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}
