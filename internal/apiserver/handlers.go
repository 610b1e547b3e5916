package apiserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	"github.com/fx147/operator-dispatcher/pkg/registry"
	"github.com/go-chi/chi/v5"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// resolve 根据路径中的 group/version/resource 找到对应的 GVK
func (s *server) resolve(r *http.Request) (schema.GroupVersionKind, error) {
	gvr := schema.GroupVersionResource{
		Group:    chi.URLParam(r, "group"),
		Version:  chi.URLParam(r, "version"),
		Resource: chi.URLParam(r, "resource"),
	}
	gvk, ok := s.resources[gvr]
	if !ok {
		return schema.GroupVersionKind{}, notFoundPath(r.URL.Path)
	}
	return gvk, nil
}

// list handles GET [/namespaces/{namespace}]/{resource}
func (s *server) list(w http.ResponseWriter, r *http.Request) {
	gvk, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}

	objs, rv, err := s.registry.List(r.Context(), gvk, chi.URLParam(r, "namespace"))
	if err != nil {
		writeError(w, err)
		return
	}

	apiVersion, kind := gvk.GroupVersion().WithKind(gvk.Kind + "List").ToAPIVersionAndKind()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"apiVersion": apiVersion,
		"kind":       kind,
		"metadata":   metav1.ListMeta{ResourceVersion: rv},
		"items":      objs,
	})
}

// get handles GET /namespaces/{namespace}/{resource}/{name}
func (s *server) get(w http.ResponseWriter, r *http.Request) {
	gvk, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}

	obj, err := s.registry.Get(r.Context(), gvk, chi.URLParam(r, "namespace"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// create handles POST /namespaces/{namespace}/{resource}
func (s *server) create(w http.ResponseWriter, r *http.Request) {
	obj, err := s.decodeBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := s.registry.Create(r.Context(), obj)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/%s", r.URL.Path, out.GetObjectMeta().Name))
	writeJSON(w, http.StatusCreated, out)
}

// replace handles PUT /namespaces/{namespace}/{resource}/{name}。
// 请求体中的 metadata.resourceVersion 就是期望的版本。
func (s *server) replace(w http.ResponseWriter, r *http.Request) {
	obj, err := s.decodeBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	meta := obj.GetObjectMeta()
	name := chi.URLParam(r, "name")
	if meta.Name != name {
		writeError(w, apierrors.NewBadRequest(fmt.Sprintf("the name of the object (%s) does not match the name on the URL (%s)", meta.Name, name)))
		return
	}

	out, err := s.registry.Replace(r.Context(), obj, meta.ResourceVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// delete handles DELETE /namespaces/{namespace}/{resource}/{name}
func (s *server) delete(w http.ResponseWriter, r *http.Request) {
	gvk, err := s.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.registry.Delete(r.Context(), gvk, chi.URLParam(r, "namespace"), name); err != nil {
		writeError(w, err)
		return
	}
	status := successStatus(fmt.Sprintf("%s %q deleted", gvk.Kind, name))
	writeJSON(w, http.StatusOK, &status)
}

// decodeBody 把请求体解码为路径对应的类型，并用路径中的命名空间填充对象
func (s *server) decodeBody(r *http.Request) (metav1.Object, error) {
	gvk, err := s.resolve(r)
	if err != nil {
		return nil, err
	}

	newObj, err := s.scheme.New(gvk)
	if err != nil {
		return nil, apierrors.NewInternalError(err)
	}
	obj, ok := newObj.(metav1.Object)
	if !ok {
		return nil, apierrors.NewInternalError(fmt.Errorf("type %T does not carry ObjectMeta", newObj))
	}
	if err := json.NewDecoder(r.Body).Decode(obj); err != nil {
		return nil, apierrors.NewBadRequest(fmt.Sprintf("invalid request body: %v", err))
	}

	if bodyGVK := obj.GetObjectKind().GroupVersionKind(); bodyGVK.Kind != "" && bodyGVK != gvk {
		return nil, apierrors.NewBadRequest(fmt.Sprintf("object kind %s does not match the URL (%s)", bodyGVK, gvk))
	}
	obj.GetObjectKind().SetGroupVersionKind(gvk)

	meta := obj.GetObjectMeta()
	namespace := chi.URLParam(r, "namespace")
	if meta.Namespace == "" {
		meta.Namespace = namespace
	}
	if meta.Namespace != namespace {
		return nil, apierrors.NewBadRequest(fmt.Sprintf("the namespace of the object (%s) does not match the namespace on the URL (%s)", meta.Namespace, namespace))
	}
	if meta.Name == "" {
		meta.Name = chi.URLParam(r, "name")
	}
	if meta.Name == "" {
		// create 时由 registry 返回 "name is required"
		return obj, nil
	}
	if err := registry.ValidateObjectName(gvk, meta.Namespace, meta.Name); err != nil {
		return nil, err
	}
	return obj, nil
}
