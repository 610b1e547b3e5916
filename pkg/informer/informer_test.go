package informer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/fx147/operator-dispatcher/pkg/registry"
	"github.com/fx147/operator-dispatcher/pkg/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var serviceGVK = samplev1.SchemeGroupVersion.WithKind(samplev1.CustomServiceKind)

type recordedEvent struct {
	action watch.Action
	name   string
	rv     string
}

// recorder 记录收到的事件，并检查投递是否被串行化
type recorder struct {
	mu       sync.Mutex
	events   []recordedEvent
	closed   []error
	inflight int
	overlap  bool
}

func (r *recorder) OnEvent(action watch.Action, obj metav1.Object) {
	r.mu.Lock()
	r.inflight++
	if r.inflight > 1 {
		r.overlap = true
	}
	e := recordedEvent{action: action}
	if obj != nil {
		e.name = obj.GetObjectMeta().Name
		e.rv = obj.GetObjectMeta().ResourceVersion
	}
	r.events = append(r.events, e)
	r.mu.Unlock()

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()
}

func (r *recorder) OnClose(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, err)
}

func (r *recorder) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *recorder) closeErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.closed...)
}

func (r *recorder) has(action watch.Action, name string) bool {
	for _, e := range r.snapshot() {
		if e.action == action && e.name == name {
			return true
		}
	}
	return false
}

func newService(namespace, name string) *samplev1.CustomService {
	return &samplev1.CustomService{
		TypeMeta:   metav1.TypeMeta{APIVersion: samplev1.SchemeGroupVersion.String(), Kind: samplev1.CustomServiceKind},
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
	}
}

func newRegistry(t *testing.T) *registry.Registry {
	s := runtime.NewScheme()
	require.NoError(t, samplev1.AddToScheme(s))
	store, err := registry.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return registry.NewRegistry(store, s)
}

func TestInformerWithRegistry(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)

	_, err := reg.Create(ctx, newService("default", "existing"))
	require.NoError(t, err)
	_, err = reg.Create(ctx, newService("other", "filtered"))
	require.NoError(t, err)

	inf := NewInformer(reg, serviceGVK, "default", time.Hour)
	rec := &recorder{}
	inf.AddEventHandler(rec)

	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		inf.Run(stopCh)
		close(done)
	}()

	require.Eventually(t, inf.HasSynced, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return rec.has(watch.Added, "existing") }, time.Second, 10*time.Millisecond)

	created, err := reg.Create(ctx, newService("default", "app"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.has(watch.Added, "app") }, time.Second, 10*time.Millisecond)

	svc := created.DeepCopyObject().(*samplev1.CustomService)
	svc.Spec.Port = 80
	_, err = reg.Replace(ctx, svc, svc.ResourceVersion)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.has(watch.Modified, "app") }, time.Second, 10*time.Millisecond)

	require.NoError(t, reg.Delete(ctx, serviceGVK, "default", "app"))
	require.Eventually(t, func() bool { return rec.has(watch.Deleted, "app") }, time.Second, 10*time.Millisecond)

	close(stopCh)
	<-done

	assert.False(t, rec.has(watch.Added, "filtered"), "objects outside the namespace must be filtered")
	assert.False(t, rec.overlap, "deliveries must not overlap")
	assert.Equal(t, []error{nil}, rec.closeErrors())
}

// fakeRegistry 是一个可控的 registry.Interface，只实现 Informer 用到的方法
type fakeRegistry struct {
	registry.Interface

	mu      sync.Mutex
	objects []metav1.Object
	rv      string
	listErr error
	events  chan registry.Event
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{events: make(chan registry.Event, 10), rv: "0"}
}

func (f *fakeRegistry) Subscribe() (<-chan registry.Event, func()) {
	return f.events, func() {}
}

func (f *fakeRegistry) List(ctx context.Context, gvk schema.GroupVersionKind, namespace string) ([]metav1.Object, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	out := make([]metav1.Object, 0, len(f.objects))
	for _, obj := range f.objects {
		out = append(out, obj.DeepCopyObject().(metav1.Object))
	}
	return out, f.rv, nil
}

func (f *fakeRegistry) set(rv string, objs ...metav1.Object) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rv = rv
	f.objects = objs
}

func (f *fakeRegistry) failList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func withRV(svc *samplev1.CustomService, rv string) *samplev1.CustomService {
	svc.ResourceVersion = rv
	return svc
}

func newTestInformer(reg registry.Interface) (*informer, *recorder) {
	inf := NewInformer(reg, serviceGVK, "", time.Hour).(*informer)
	rec := &recorder{}
	inf.AddEventHandler(rec)
	return inf, rec
}

func TestResyncSynthesizesEvents(t *testing.T) {
	reg := newFakeRegistry()
	inf, rec := newTestInformer(reg)

	reg.set("2", withRV(newService("default", "a"), "1"), withRV(newService("default", "b"), "2"))
	inf.resync()
	assert.True(t, inf.HasSynced())

	// 未变化的 resync 不产生事件
	inf.resync()

	reg.set("4", withRV(newService("default", "a"), "4"))
	inf.resync()

	assert.Equal(t, []recordedEvent{
		{action: watch.Added, name: "a", rv: "1"},
		{action: watch.Added, name: "b", rv: "2"},
		{action: watch.Modified, name: "a", rv: "4"},
		// tombstone 是最后一次看到的对象
		{action: watch.Deleted, name: "b", rv: "2"},
	}, rec.snapshot())
}

func TestResyncListFailureDeliversError(t *testing.T) {
	reg := newFakeRegistry()
	inf, rec := newTestInformer(reg)
	reg.failList(errors.New("disk on fire"))

	inf.resync()

	assert.Equal(t, []recordedEvent{{action: watch.Error}}, rec.snapshot())
	assert.False(t, inf.HasSynced())
}

func TestProcessEventDedupesAndNormalizes(t *testing.T) {
	inf, rec := newTestInformer(newFakeRegistry())

	svc := withRV(newService("default", "a"), "3")
	// 第一次看到的对象总是 Added，即使 Registry 报告的是 Modified
	inf.processEvent(registry.Event{Type: watch.Modified, Object: svc, ResourceVersion: "3"})
	// 重复的版本被忽略
	inf.processEvent(registry.Event{Type: watch.Modified, Object: svc, ResourceVersion: "3"})
	// 更旧的版本被忽略
	inf.processEvent(registry.Event{Type: watch.Modified, Object: withRV(newService("default", "a"), "2"), ResourceVersion: "2"})
	inf.processEvent(registry.Event{Type: watch.Modified, Object: withRV(newService("default", "a"), "5"), ResourceVersion: "5"})
	// 其他类型被过滤
	other := &samplev1.CustomService{ObjectMeta: metav1.ObjectMeta{Namespace: "default", Name: "x"}}
	other.SetGroupVersionKind(schema.GroupVersionKind{Group: "other.io", Version: "v1", Kind: "Thing"})
	inf.processEvent(registry.Event{Type: watch.Added, Object: other, ResourceVersion: "6"})
	inf.processEvent(registry.Event{Type: watch.Deleted, Object: withRV(newService("default", "a"), "7"), ResourceVersion: "7"})
	// 未知对象的删除被忽略
	inf.processEvent(registry.Event{Type: watch.Deleted, Object: withRV(newService("default", "b"), "8"), ResourceVersion: "8"})

	assert.Equal(t, []recordedEvent{
		{action: watch.Added, name: "a", rv: "3"},
		{action: watch.Modified, name: "a", rv: "5"},
		{action: watch.Deleted, name: "a", rv: "7"},
	}, rec.snapshot())
}

func TestProcessEventIgnoresEventsOlderThanResync(t *testing.T) {
	reg := newFakeRegistry()
	inf, rec := newTestInformer(reg)

	reg.set("10")
	inf.resync()

	// 对象在 resync 之前创建并删除，迟到的 Added 事件不应复活它
	inf.processEvent(registry.Event{Type: watch.Added, Object: withRV(newService("default", "ghost"), "9"), ResourceVersion: "9"})
	inf.processEvent(registry.Event{Type: watch.Added, Object: withRV(newService("default", "new"), "11"), ResourceVersion: "11"})

	assert.Equal(t, []recordedEvent{{action: watch.Added, name: "new", rv: "11"}}, rec.snapshot())
}

func TestClosedSourceNotifiesHandlers(t *testing.T) {
	reg := newFakeRegistry()
	inf, rec := newTestInformer(reg)

	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		inf.Run(stopCh)
		close(done)
	}()

	close(reg.events)
	require.Eventually(t, func() bool { return len(rec.closeErrors()) == 1 }, time.Second, 10*time.Millisecond)

	close(stopCh)
	<-done

	// OnClose 只会被调用一次
	closed := rec.closeErrors()
	require.Len(t, closed, 1)
	assert.ErrorIs(t, closed[0], ErrSourceClosed)
}

func TestRunDeliversNothingAfterClose(t *testing.T) {
	reg := newFakeRegistry()
	inf := NewInformer(reg, serviceGVK, "", time.Hour)

	var mu sync.Mutex
	var calls []string
	entered := make(chan struct{})
	release := make(chan struct{})
	inf.AddEventHandler(watch.HandlerFuncs{
		EventFunc: func(action watch.Action, obj metav1.Object) {
			mu.Lock()
			calls = append(calls, "event")
			first := len(calls) == 1
			mu.Unlock()
			if first {
				close(entered)
				<-release
			}
		},
		CloseFunc: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, "close")
		},
	})
	recorded := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), calls...)
	}

	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		inf.Run(stopCh)
		close(done)
	}()
	require.Eventually(t, inf.HasSynced, time.Second, 10*time.Millisecond)

	// 第一个事件阻塞在处理器里，后面的事件还留在 channel 中
	for n := 1; n <= 5; n++ {
		rv := strconv.Itoa(10 + n)
		reg.events <- registry.Event{Type: watch.Added, Object: withRV(newService("default", "svc-"+strconv.Itoa(n)), rv), ResourceVersion: rv}
	}
	<-entered

	close(stopCh)
	assert.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 10*time.Millisecond, "Run must wait for the in-flight event")

	close(release)
	<-done

	got := recorded()
	require.NotEmpty(t, got)
	assert.Equal(t, "close", got[len(got)-1])

	// 停止之后再到达的事件不会被投递
	reg.events <- registry.Event{Type: watch.Added, Object: withRV(newService("default", "late"), "99"), ResourceVersion: "99"}
	inf.(*informer).resync()
	assert.Equal(t, got, recorded())
}

func TestIsNewer(t *testing.T) {
	assert.True(t, isNewer("10", "9"))
	assert.False(t, isNewer("9", "10"))
	assert.False(t, isNewer("9", "9"))
	assert.True(t, isNewer("abc", "abd"))
	assert.False(t, isNewer("abc", "abc"))
}
