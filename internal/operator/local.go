package operator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fx147/operator-dispatcher/internal/apiserver"
	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/fx147/operator-dispatcher/pkg/controller"
	"github.com/fx147/operator-dispatcher/pkg/dispatcher"
	"github.com/fx147/operator-dispatcher/pkg/informer"
	"github.com/fx147/operator-dispatcher/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/klog/v2"
)

const shutdownTimeout = 5 * time.Second

// Local 是本地模式的 operator：对象保存在 Registry 中，由 Informer 投递给 dispatcher，
// 外部通过 API Server 读写对象。
type Local struct {
	opts     Options
	store    registry.Store
	registry *registry.Registry
	informer informer.Informer
	backend  *controller.MemoryBackend
	handler  http.Handler
}

// NewLocal 打开存储并组装所有组件，但不启动任何 goroutine
func NewLocal(opts Options) (*Local, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	scheme := runtime.NewScheme()
	if err := samplev1.AddToScheme(scheme); err != nil {
		_ = store.Close()
		return nil, err
	}
	reg := registry.NewRegistry(store, scheme)

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := dispatcher.NewMetrics()
	if err := metrics.Register(metricsRegistry); err != nil {
		_ = store.Close()
		return nil, err
	}

	backend := controller.NewMemoryBackend("")
	gvk := samplev1.SchemeGroupVersion.WithKind(samplev1.CustomServiceKind)
	d, err := dispatcher.New[*samplev1.CustomService](
		controller.NewCustomServiceController(backend),
		registry.NewClient[*samplev1.CustomService](reg, gvk),
		dispatcher.Config{Name: "customservice", Finalizer: opts.Finalizer, Metrics: metrics},
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	inf := informer.NewInformer(reg, gvk, opts.Namespace, opts.ResyncPeriod)
	inf.AddEventHandler(d)

	return &Local{
		opts:     opts,
		store:    store,
		registry: reg,
		informer: inf,
		backend:  backend,
		handler:  apiserver.NewServer(reg, scheme, apiserver.Config{
			Gatherer:  metricsRegistry,
			ReadyFunc: inf.HasSynced,
		}),
	}, nil
}

func openStore(opts Options) (registry.Store, error) {
	switch opts.Store {
	case StoreBolt:
		klog.InfoS("Opening bolt store", "path", opts.DBPath)
		return registry.OpenBoltStore(opts.DBPath)
	case StoreFile:
		klog.InfoS("Opening file store", "dir", opts.DataDir)
		return registry.NewFileStore(opts.DataDir)
	default:
		return nil, fmt.Errorf("unknown store %q", opts.Store)
	}
}

// Handler 返回 API Server 的根路由
func (l *Local) Handler() http.Handler {
	return l.handler
}

// Backend 返回示例控制器使用的后端
func (l *Local) Backend() *controller.MemoryBackend {
	return l.backend
}

// Run 启动 Informer 和 API Server，阻塞直到 ctx 被取消。返回前会关闭存储。
func (l *Local) Run(ctx context.Context) error {
	defer func() {
		if err := l.store.Close(); err != nil {
			klog.ErrorS(err, "Failed to close store")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	informerDone := make(chan struct{})
	go func() {
		defer close(informerDone)
		l.informer.Run(ctx.Done())
	}()

	srv := &http.Server{
		Addr:              l.opts.ListenAddress,
		Handler:           l.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		klog.InfoS("Starting API server", "address", l.opts.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("API server failed: %w", err)
		}
	}

	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		klog.ErrorS(err, "Failed to shut down API server")
	}

	// 存储必须在 informer 退出之后才能关闭
	<-informerDone
	klog.InfoS("Operator stopped")
	return runErr
}
