package v1

import (
	"testing"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	k8smetav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// 编译时检查：*CustomService 同时实现了 runtime.Object 和 metav1.Object
var (
	_ runtime.Object = &CustomService{}
	_ metav1.Object  = &CustomService{}
	_ runtime.Object = &CustomServiceList{}
)

func newTestCustomService() *CustomService {
	now := k8smetav1.Now()
	return &CustomService{
		TypeMeta: metav1.TypeMeta{
			APIVersion: SchemeGroupVersion.String(),
			Kind:       CustomServiceKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:              "my-test-app",
			Namespace:         "default",
			Labels:            map[string]string{"app": "test"},
			DeletionTimestamp: &now,
			Finalizers:        []string{"a", "b"},
		},
		Spec: CustomServiceSpec{ServiceName: "svc", Port: 8080},
		Status: CustomServiceStatus{
			Conditions: []metav1.Condition{{Type: ConditionTypeReady, Status: metav1.ConditionStatusTrue}},
		},
	}
}

func TestGetObjectKind(t *testing.T) {
	svc := newTestCustomService()

	gvk := svc.GetObjectKind().GroupVersionKind()
	assert.Equal(t, CustomServiceKind, gvk.Kind)
	assert.Equal(t, GroupName, gvk.Group)
	assert.Equal(t, "v1", gvk.Version)
}

func TestDeepCopyObject(t *testing.T) {
	original := newTestCustomService()

	copied, ok := original.DeepCopyObject().(*CustomService)
	require.True(t, ok, "DeepCopyObject() returned an object of unexpected type")
	require.NotSame(t, original, copied)
	assert.Equal(t, original, copied)

	// 修改副本，不影响原始对象
	copied.Labels["app"] = "modified"
	copied.Finalizers[0] = "changed"
	copied.Status.Conditions[0].Status = metav1.ConditionStatusFalse
	copied.DeletionTimestamp = nil

	assert.Equal(t, "test", original.Labels["app"])
	assert.Equal(t, []string{"a", "b"}, original.Finalizers)
	assert.Equal(t, metav1.ConditionStatusTrue, original.Status.Conditions[0].Status)
	assert.NotNil(t, original.DeletionTimestamp)
}

func TestGetObjectMetaIsPromoted(t *testing.T) {
	svc := newTestCustomService()
	var obj metav1.Object = svc

	obj.GetObjectMeta().Finalizers = append(obj.GetObjectMeta().Finalizers, "c")
	assert.Equal(t, []string{"a", "b", "c"}, svc.Finalizers)
}

func TestAddToScheme(t *testing.T) {
	s := runtime.NewScheme()
	require.NoError(t, AddToScheme(s))

	obj, err := s.New(SchemeGroupVersion.WithKind(CustomServiceKind))
	require.NoError(t, err)
	_, ok := obj.(*CustomService)
	assert.True(t, ok)

	gvks, _, err := s.ObjectKinds(&CustomService{})
	require.NoError(t, err)
	require.Len(t, gvks, 1)
	assert.Equal(t, SchemeGroupVersion.WithKind(CustomServiceKind), gvks[0])
}
