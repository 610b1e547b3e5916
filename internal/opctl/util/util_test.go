package util

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	k8smetav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

const manifest = `
apiVersion: sample.fx147.io/v1
kind: CustomService
metadata:
  name: web
  labels:
    app: web
spec:
  port: 8080
---
apiVersion: sample.fx147.io/v1
kind: CustomService
metadata:
  name: api
  namespace: prod
spec:
  serviceName: api-backend
  port: 9090
`

func TestDecodeCustomServices(t *testing.T) {
	items, err := DecodeCustomServices(strings.NewReader(manifest))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "web", items[0].Name)
	assert.Equal(t, "default", items[0].Namespace)
	assert.Equal(t, map[string]string{"app": "web"}, items[0].Labels)
	assert.Equal(t, int32(8080), items[0].Spec.Port)

	assert.Equal(t, "prod", items[1].Namespace)
	assert.Equal(t, "api-backend", items[1].Spec.ServiceName)
}

func TestDecodeCustomServicesErrors(t *testing.T) {
	tests := map[string]string{
		"wrong kind":    "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: x\n",
		"missing name":  "apiVersion: sample.fx147.io/v1\nkind: CustomService\nspec:\n  port: 80\n",
		"unknown field": "apiVersion: sample.fx147.io/v1\nkind: CustomService\nmetadata:\n  name: x\nspec:\n  replicas: 3\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCustomServices(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestDecodeCustomServicesJSON(t *testing.T) {
	doc := `{"apiVersion":"sample.fx147.io/v1","kind":"CustomService","metadata":{"name":"web"},"spec":{"port":80}}`
	items, err := DecodeCustomServices(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(80), items[0].Spec.Port)
}

func newService(name string) *samplev1.CustomService {
	svc := &samplev1.CustomService{}
	svc.APIVersion = samplev1.SchemeGroupVersion.String()
	svc.Kind = samplev1.CustomServiceKind
	svc.Namespace = "default"
	svc.Name = name
	svc.ResourceVersion = "3"
	svc.CreationTimestamp = k8smetav1.NewTime(time.Now().Add(-2 * time.Hour))
	svc.Finalizers = []string{"sample.fx147.io/backend-cleanup"}
	svc.Spec.Port = 8080
	svc.Status.Phase = samplev1.CustomServicePhaseReady
	svc.Status.Endpoint = name + ".svc.local:8080"
	return svc
}

func TestPrintCustomServicesTable(t *testing.T) {
	var buf bytes.Buffer
	PrintCustomServicesTable(&buf, []samplev1.CustomService{*newService("web")}, true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"NAMESPACE", "NAME", "PHASE", "ENDPOINT", "FINALIZERS", "AGE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"default", "web", "Ready", "web.svc.local:8080", "1", "120m"}, strings.Fields(lines[1]))
}

func TestPrintCustomServiceDetails(t *testing.T) {
	svc := newService("web")
	svc.Labels = map[string]string{"b": "2", "a": "1"}
	metav1.SetCondition(&svc.Status.Conditions, metav1.Condition{
		Type:    samplev1.ConditionTypeReady,
		Status:  metav1.ConditionStatusTrue,
		Reason:  "ServiceReady",
		Message: "backend service is ready",
	})

	var buf bytes.Buffer
	PrintCustomServiceDetails(&buf, svc)
	out := buf.String()

	assert.Contains(t, out, "Labels:             a=1,b=2")
	assert.Contains(t, out, "Finalizers:         sample.fx147.io/backend-cleanup")
	assert.Contains(t, out, "Endpoint:         web.svc.local:8080")
	assert.Contains(t, out, "ServiceReady")
	assert.NotContains(t, out, "Deleting Since")
}

func TestPrintObject(t *testing.T) {
	svc := newService("web")

	var buf bytes.Buffer
	require.NoError(t, PrintObject(&buf, svc, "yaml"))
	decoded := &samplev1.CustomService{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), decoded))
	assert.Equal(t, svc.Spec, decoded.Spec)

	buf.Reset()
	require.NoError(t, PrintObject(&buf, svc, "json"))
	assert.Contains(t, buf.String(), `"kind": "CustomService"`)

	assert.Error(t, PrintObject(&buf, svc, "xml"))
}

// fakeCustomServices 实现 clientset.CustomServiceInterface
type fakeCustomServices struct {
	objects  map[string]*samplev1.CustomService
	created  []*samplev1.CustomService
	replaced []string
	getErr   error
}

func (f *fakeCustomServices) Create(ctx context.Context, obj *samplev1.CustomService) (*samplev1.CustomService, error) {
	f.created = append(f.created, obj)
	return obj, nil
}

func (f *fakeCustomServices) Get(ctx context.Context, namespace, name string) (*samplev1.CustomService, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	obj, ok := f.objects[namespace+"/"+name]
	if !ok {
		return nil, apierrors.NewNotFound(samplev1.Resource(samplev1.CustomServiceResource), name)
	}
	return obj.DeepCopy(), nil
}

func (f *fakeCustomServices) List(ctx context.Context, namespace string) (*samplev1.CustomServiceList, error) {
	return &samplev1.CustomServiceList{}, nil
}

func (f *fakeCustomServices) Replace(ctx context.Context, obj *samplev1.CustomService, expectedResourceVersion string) (*samplev1.CustomService, error) {
	f.replaced = append(f.replaced, expectedResourceVersion)
	f.objects[obj.Namespace+"/"+obj.Name] = obj
	return obj, nil
}

func (f *fakeCustomServices) Delete(ctx context.Context, namespace, name string) error {
	return nil
}

func TestApplyCreates(t *testing.T) {
	fake := &fakeCustomServices{objects: map[string]*samplev1.CustomService{}}
	desired := newService("web")

	result, err := Apply(context.Background(), fake, desired)
	require.NoError(t, err)
	assert.Equal(t, Created, result)
	assert.Len(t, fake.created, 1)
	assert.Empty(t, fake.replaced)
}

func TestApplyKeepsServerOwnedFields(t *testing.T) {
	existing := newService("web")
	existing.ResourceVersion = "11"
	fake := &fakeCustomServices{objects: map[string]*samplev1.CustomService{"default/web": existing}}

	desired := &samplev1.CustomService{}
	desired.Namespace = "default"
	desired.Name = "web"
	desired.Labels = map[string]string{"tier": "frontend"}
	desired.Spec.Port = 9090

	result, err := Apply(context.Background(), fake, desired)
	require.NoError(t, err)
	assert.Equal(t, Configured, result)
	assert.Equal(t, []string{"11"}, fake.replaced)

	stored := fake.objects["default/web"]
	assert.Equal(t, int32(9090), stored.Spec.Port)
	assert.Equal(t, map[string]string{"tier": "frontend"}, stored.Labels)
	assert.Equal(t, existing.Finalizers, stored.Finalizers)
	assert.Equal(t, samplev1.CustomServicePhaseReady, stored.Status.Phase)
}

func TestApplyPropagatesGetError(t *testing.T) {
	boom := errors.New("connection refused")
	fake := &fakeCustomServices{getErr: boom}
	_, err := Apply(context.Background(), fake, newService("web"))
	assert.ErrorIs(t, err, boom)
}
