package operator

import (
	"context"
	"errors"
	"net/http"
	"time"

	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/fx147/operator-dispatcher/pkg/controller"
	"github.com/fx147/operator-dispatcher/pkg/dispatcher"
	"github.com/fx147/operator-dispatcher/pkg/kube"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
)

// rewatchPeriod 是 watch 流结束后重新打开的间隔
const rewatchPeriod = time.Second

// Kube 是 Kubernetes 模式的 operator
type Kube struct {
	opts    Options
	watcher *kube.Watcher[*samplev1.CustomService]
	handler *dispatcher.EventDispatcher[*samplev1.CustomService]
	metrics http.Handler
}

// NewKubeFromConfig 用 kubeconfig 创建 dynamic client 并组装 Kube
func NewKubeFromConfig(opts Options) (*Kube, error) {
	config, err := clientcmd.BuildConfigFromFlags("", opts.Kubeconfig)
	if err != nil {
		return nil, err
	}
	client, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, err
	}
	return NewKube(opts, client)
}

func NewKube(opts Options, client dynamic.Interface) (*Kube, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	mapping, err := kube.NewMapping(opts.GroupVersionKind(), true)
	if err != nil {
		return nil, err
	}
	if opts.Resource != "" {
		mapping.Resource.Resource = opts.Resource
	}

	metricsRegistry := prometheus.NewRegistry()
	metrics := dispatcher.NewMetrics()
	if err := metrics.Register(metricsRegistry); err != nil {
		return nil, err
	}

	newObject := func() *samplev1.CustomService { return &samplev1.CustomService{} }
	d, err := dispatcher.New[*samplev1.CustomService](
		controller.NewCustomServiceController(controller.NewMemoryBackend("")),
		kube.NewClient(client, mapping, newObject),
		dispatcher.Config{Name: "customservice", Finalizer: opts.Finalizer, Metrics: metrics},
	)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))

	return &Kube{
		opts:    opts,
		watcher: kube.NewWatcher(client, mapping, opts.Namespace, newObject),
		handler: d,
		metrics: r,
	}, nil
}

// Run 反复打开 watch 流直到 ctx 被取消
func (k *Kube) Run(ctx context.Context) error {
	srv := &http.Server{Addr: k.opts.ListenAddress, Handler: k.metrics, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		klog.InfoS("Starting metrics server", "address", k.opts.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.ErrorS(err, "Metrics server failed")
		}
	}()

	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if err := k.watcher.Run(ctx, k.handler); err != nil {
			klog.ErrorS(err, "Watch failed, retrying", "after", rewatchPeriod)
		}
	}, rewatchPeriod)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
