package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productload/internal/scenario"
)

type memRecorder struct {
	mu      sync.Mutex
	results []ExperimentResult
}

func (m *memRecorder) Record(res ExperimentResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
}

func (m *memRecorder) all() []ExperimentResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExperimentResult(nil), m.results...)
}

func TestHTTPClientGet(t *testing.T) {
	var gotPath, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Test")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	rec := &memRecorder{}
	var inflight int64
	c := &HTTPClient{
		Host:     srv.URL + "/",
		HTTP:     srv.Client(),
		Headers:  map[string]string{"X-Test": "yes"},
		UserID:   "u1",
		Recorder: rec,
		Inflight: &inflight,
	}
	c.Do(context.Background(), scenario.Get("/products/42", scenario.ProductName))

	assert.Equal(t, "/products/42", gotPath)
	assert.Equal(t, "yes", gotHeader)
	assert.Zero(t, inflight)

	results := rec.all()
	require.Len(t, results, 1)
	res := results[0]
	assert.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "GET", res.Method)
	assert.Equal(t, scenario.ProductName, res.Name)
	assert.Equal(t, srv.URL+"/products/42", res.URL)
	assert.EqualValues(t, len(`{"ok":true}`), res.Bytes)
	assert.Equal(t, "u1", res.UserID)
	assert.Empty(t, res.Error)
}

func TestHTTPClientPostJSON(t *testing.T) {
	var body []byte
	var contentType, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rec := &memRecorder{}
	c := &HTTPClient{Host: srv.URL, HTTP: srv.Client(), Recorder: rec}
	c.Do(context.Background(), scenario.Post(scenario.ProductDetailsPath(42), "", scenario.NewProductRecord(42)))

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t,
		`{"product_id":42,"sku":"LOCUST-TEST-42","manufacturer":"Load Test Inc.","category_id":1,"weight":200,"some_other_id":300}`,
		string(body))

	results := rec.all()
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "/products/42/details", results[0].Name, "empty name falls back to path")
}

func TestHTTPClientStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Product not found", http.StatusNotFound)
	}))
	defer srv.Close()

	rec := &memRecorder{}
	c := &HTTPClient{Host: srv.URL, HTTP: srv.Client(), Recorder: rec}
	c.Do(context.Background(), scenario.Get("/products/1", scenario.ProductName))

	res := rec.all()[0]
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "HTTP 404 Not Found", res.Error)
	assert.Contains(t, res.ResponseBody, "Product not found")

	var se *StatusError
	assert.ErrorAs(t, res.Err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestHTTPClientNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	rec := &memRecorder{}
	c := &HTTPClient{Host: host, HTTP: &http.Client{Timeout: time.Second}, Recorder: rec}
	c.Do(context.Background(), scenario.Get("/products/1", scenario.ProductName))

	res := rec.all()[0]
	assert.False(t, res.Success)
	assert.Zero(t, res.Status)
	assert.Error(t, res.Err)
	assert.NotEmpty(t, res.Error)
}

func TestHTTPClientEncodeFailure(t *testing.T) {
	rec := &memRecorder{}
	c := &HTTPClient{Host: "http://127.0.0.1:1", HTTP: http.DefaultClient, Recorder: rec}
	c.Do(context.Background(), scenario.Post("/x", "", map[string]any{"bad": make(chan int)}))

	res := rec.all()[0]
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "encode body")
}

func TestHTTPClientInflightSurvivesCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]int{"product_id": 1})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	rec := &memRecorder{}
	c := &HTTPClient{Host: srv.URL, HTTP: srv.Client(), Recorder: rec}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	c.Do(ctx, scenario.Get("/products/1", scenario.ProductName))

	res := rec.all()[0]
	assert.True(t, res.Success, "in-flight request was aborted: %v", res.Err)
}

func TestHTTPClientNetworkFailureGroupsByName(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	r := NewRunner(DefaultConfig(), nil, nil)
	c := &HTTPClient{Host: host, HTTP: &http.Client{Timeout: time.Second}, Recorder: r}
	for id := 1; id <= 20; id++ {
		c.Do(context.Background(), scenario.Get(scenario.ProductPath(id), scenario.ProductName))
		c.Do(context.Background(), scenario.Post(scenario.ProductDetailsPath(id), scenario.ProductDetailsName, scenario.NewProductRecord(id)))
	}

	errs := r.Stats.ErrorCounts()
	require.Len(t, errs, 2)
	for key, n := range errs {
		assert.EqualValues(t, 20, n, key)
		assert.NotContains(t, key, host)
		assert.True(t, strings.HasPrefix(key, "GET /products/[id]: ") ||
			strings.HasPrefix(key, "POST /products/[id]/details: "), key)
	}

	for _, res := range r.ResultsCopy() {
		assert.NotContains(t, res.Error, "/products/")
		assert.Contains(t, res.URL, "/products/")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestHTTPClientInformationalIsFailure(t *testing.T) {
	for _, code := range []int{http.StatusContinue, http.StatusOK, http.StatusFound, http.StatusBadRequest} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: code,
					Body:       io.NopCloser(strings.NewReader("")),
					Header:     http.Header{},
					Request:    r,
				}, nil
			})
			rec := &memRecorder{}
			c := &HTTPClient{Host: "http://product.test", HTTP: &http.Client{Transport: rt}, Recorder: rec}
			c.Do(context.Background(), scenario.Get("/products/1", scenario.ProductName))

			res := rec.all()[0]
			assert.Equal(t, code, res.Status)
			assert.Equal(t, code >= 200 && code < 400, res.Success)
		})
	}
}
