package clientset

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	metav1 "github.com/fx147/operator-dispatcher/pkg/apis/meta/v1"
	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   samplev1.CustomService
}

func newTestClientset(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Clientset, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		r.Body = io.NopCloser(bytes.NewReader(data))
		requests = append(requests, rec)
		respond(w, r)
	}))
	t.Cleanup(server.Close)

	addr := server.Listener.Addr().(*net.TCPAddr)
	cs, err := NewClientset("http", addr.IP.String(), strconv.Itoa(addr.Port), nil)
	require.NoError(t, err)
	return cs, &requests
}

func echo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(&samplev1.CustomServiceList{Items: []samplev1.CustomService{{ObjectMeta: metav1.ObjectMeta{Name: "web"}}}})
	case http.MethodDelete:
		w.WriteHeader(http.StatusOK)
	default:
		var in samplev1.CustomService
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(&in)
	}
}

func TestCustomServicesPaths(t *testing.T) {
	ctx := context.Background()
	cs, requests := newTestClientset(t, echo)
	services := cs.CustomServices()

	svc := &samplev1.CustomService{ObjectMeta: metav1.ObjectMeta{Name: "web", ResourceVersion: "5"}}

	_, err := services.Create(ctx, svc)
	require.NoError(t, err)

	replaced, err := services.Replace(ctx, svc, "3")
	require.NoError(t, err)
	assert.Equal(t, "3", replaced.ResourceVersion)
	assert.Equal(t, "5", svc.ResourceVersion, "Replace must not modify the caller's object")

	list, err := services.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)

	require.NoError(t, services.Delete(ctx, "prod", "web"))

	got := *requests
	require.Len(t, got, 4)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/apis/sample.fx147.io/v1/namespaces/default/customservices", got[0].path)
	assert.Equal(t, http.MethodPut, got[1].method)
	assert.Equal(t, "/apis/sample.fx147.io/v1/namespaces/default/customservices/web", got[1].path)
	assert.Equal(t, "3", got[1].body.ResourceVersion)
	assert.Equal(t, "/apis/sample.fx147.io/v1/customservices", got[2].path)
	assert.Equal(t, http.MethodDelete, got[3].method)
	assert.Equal(t, "/apis/sample.fx147.io/v1/namespaces/prod/customservices/web", got[3].path)
}
