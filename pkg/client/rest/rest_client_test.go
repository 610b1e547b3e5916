package rest

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var testGroupVersion = schema.GroupVersion{Group: "sample.fx147.io", Version: "v1"}

type testObject struct {
	Name string `json:"name"`
	Port int    `json:"port"`
}

// newTestClient 创建一个指向 mock server 的客户端
func newTestClient(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	mockServer := httptest.NewServer(handler)
	t.Cleanup(mockServer.Close)

	addr := mockServer.Listener.Addr().(*net.TCPAddr)
	client, err := NewRESTClient("http", addr.IP.String(), strconv.Itoa(addr.Port), testGroupVersion, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create REST client: %v", err)
	}
	return client
}

func TestRESTClient_GetNamespaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if r.URL.Path != "/apis/sample.fx147.io/v1/namespaces/default/customservices/web" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("watch") != "false" {
			t.Errorf("Expected watch=false, got %q", r.URL.Query().Get("watch"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testObject{Name: "web", Port: 8080})
	})

	var obj testObject
	err := client.Get().
		Namespace("default").
		Resource("customservices").
		Name("web").
		Param("watch", "false").
		Do(context.Background()).
		Into(&obj)
	if err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if obj.Name != "web" || obj.Port != 8080 {
		t.Errorf("Unexpected object %+v", obj)
	}
}

func TestRESTClient_PostSendsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/apis/sample.fx147.io/v1/customservices" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected json content type, got %q", ct)
		}
		var in testObject
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		in.Port++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(in)
	})

	var out testObject
	err := client.Post().Resource("customservices").Body(testObject{Name: "web", Port: 1}).Do(context.Background()).Into(&out)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if out.Port != 2 {
		t.Errorf("Expected port 2, got %d", out.Port)
	}
}

func TestRESTClient_StatusErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		status := apierrors.NewConflict(schema.GroupResource{Group: "sample.fx147.io", Resource: "customservices"}, "web", nil).Status()
		status.Kind = "Status"
		status.APIVersion = "v1"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(status.Code))
		json.NewEncoder(w).Encode(status)
	})

	err := client.Put().Namespace("default").Resource("customservices").Name("web").Body(testObject{}).Do(context.Background()).Into(&testObject{})
	if !apierrors.IsConflict(err) {
		t.Errorf("Expected a conflict error, got %v", err)
	}
}

func TestRESTClient_NonStatusErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such thing", http.StatusNotFound)
	})

	result := client.Get().Resource("customservices").Name("web").Do(context.Background())
	if result.StatusCode() != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", result.StatusCode())
	}
	if err := result.Error(); !apierrors.IsNotFound(err) {
		t.Errorf("Expected a not found error, got %v", err)
	}
}

func TestRequest_BuilderErrors(t *testing.T) {
	client, err := NewRESTClient("http", "localhost", "8080", testGroupVersion, nil)
	if err != nil {
		t.Fatalf("Failed to create REST client: %v", err)
	}

	tests := []struct {
		name string
		req  *Request
	}{
		{name: "empty name", req: client.Get().Resource("customservices").Name("")},
		{name: "name set twice", req: client.Get().Resource("customservices").Name("a").Name("b")},
		{name: "namespace set twice", req: client.Get().Namespace("a").Namespace("b").Resource("customservices")},
		{name: "missing resource", req: client.Get()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Do(context.Background()).Error(); err == nil {
				t.Errorf("Expected an error")
			}
		})
	}
}

func TestRequest_URL(t *testing.T) {
	client, err := NewRESTClient("https", "example.com", "6443", testGroupVersion, nil)
	if err != nil {
		t.Fatalf("Failed to create REST client: %v", err)
	}

	got := client.Get().Resource("customservices").URL().String()
	if got != "https://example.com:6443/apis/sample.fx147.io/v1/customservices" {
		t.Errorf("Unexpected URL %s", got)
	}

	if _, err := NewRESTClient("http", "localhost", "80", schema.GroupVersion{Group: "x"}, nil); err == nil {
		t.Errorf("Expected an error for a group version without version")
	}
}
