package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This file contains unit tests for each api handler.

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	api := newTestAPIHandler(t, nil)
	api.Status(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	m := make(map[string]interface{})
	err = json.Unmarshal(data, &m)
	assert.NoError(t, err)

	_, ok := m["requestid"]
	assert.True(t, ok)

	v, ok := m["status"]
	assert.True(t, ok)
	assert.Equal(t, "up & running since 0 mins", v)

	v, ok = m["message"]
	assert.True(t, ok)
	assert.Equal(t, "Hello. Books graphql api is available. Enjoy :)", v)
}

// TestNotFoundHandler ensures unknown routes get a json reply.
func TestNotFoundHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x/books/", nil)
	w := httptest.NewRecorder()
	api := newTestAPIHandler(t, nil)
	api.NotFound().ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"requestid":"r:abc","message":"route does not exist","path":"GET /x/books/"}`, string(data))
}

func decodeGraphQLResponse(t *testing.T, body io.Reader) map[string]json.RawMessage {
	t.Helper()
	m := make(map[string]json.RawMessage)
	require.NoError(t, json.NewDecoder(body).Decode(&m))
	return m
}

// TestGraphQLHandler ensures queries are served over both GET and POST.
func TestGraphQLHandler(t *testing.T) {
	query := `{ books { id title } }`
	payload, err := json.Marshal(GraphQLRequest{Query: query})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		request func() *http.Request
	}{
		{
			"post json body",
			func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(payload)))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
		},
		{
			"post graphql body",
			func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(query))
				req.Header.Set("Content-Type", "application/graphql")
				return req
			},
		},
		{
			"get with query parameter",
			func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape(query), nil)
			},
		},
	}

	api := newTestAPIHandler(t, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.GraphQL(w, tc.request(), httprouter.Params{})
			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, JSONContentType, res.Header.Get("Content-Type"))
			m := decodeGraphQLResponse(t, res.Body)
			assert.NotContains(t, m, "errors")

			var data struct {
				Books []json.RawMessage `json:"books"`
			}
			require.NoError(t, json.Unmarshal(m["data"], &data))
			require.Len(t, data.Books, 7)
			assert.JSONEq(t, `{"id":"1","title":"Harry Potter and the Philosophers Stone"}`, string(data.Books[0]))
		})
	}
}

// TestGraphQLHandler_ValidationError ensures engine errors are reported with 200.
func TestGraphQLHandler_ValidationError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ authors }"}`))
	w := httptest.NewRecorder()
	api := newTestAPIHandler(t, nil)
	api.GraphQL(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	m := decodeGraphQLResponse(t, res.Body)
	assert.Contains(t, m, "errors")
	assert.NotContains(t, m, "data")
}

// TestGraphQLHandler_Rejections ensures malformed requests are not executed.
func TestGraphQLHandler_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		request *http.Request
		status  int
	}{
		{
			"post without query",
			httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":""}`)),
			http.StatusBadRequest,
		},
		{
			"post with invalid json",
			httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":`)),
			http.StatusBadRequest,
		},
		{
			"get without query",
			httptest.NewRequest(http.MethodGet, "/graphql", nil),
			http.StatusBadRequest,
		},
		{
			"get with invalid variables",
			httptest.NewRequest(http.MethodGet, "/graphql?query=%7Bbooks%7Bid%7D%7D&variables=%7B", nil),
			http.StatusBadRequest,
		},
		{
			"mutation over get",
			httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape(`mutation { addBook { id } }`), nil),
			http.StatusMethodNotAllowed,
		},
		{
			"unsupported method",
			httptest.NewRequest(http.MethodPut, "/graphql", strings.NewReader(`{"query":"{ books { id } }"}`)),
			http.StatusMethodNotAllowed,
		},
		{
			"body too large",
			httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ books { id title year img_url } }"}`)),
			http.StatusRequestEntityTooLarge,
		},
	}

	config := DefaultConfig()
	config.GraphQL.MaxBodyBytes = 32
	api := newTestAPIHandler(t, config)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			api.GraphQL(w, tc.request, httprouter.Params{})
			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, JSONContentType, res.Header.Get("Content-Type"))
			var apiErr APIError
			require.NoError(t, json.NewDecoder(res.Body).Decode(&apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestGetSchemaHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	w := httptest.NewRecorder()
	api := newTestAPIHandler(t, nil)
	api.GetSchema(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/plain; charset=UTF-8", res.Header.Get("Content-Type"))
	assert.Equal(t, api.schema.SDL(), string(data))
}

func TestPlaygroundHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/playground", nil)
	w := httptest.NewRecorder()
	api := newTestAPIHandler(t, nil)
	api.Playground()(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(data), "Books GraphQL Playground")
}

// TestMaintenanceHandler ensures the mode can be enabled and disabled.
func TestMaintenanceHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil)

	t.Run("enable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=enable&msg=upgrading", nil)
		w := httptest.NewRecorder()
		api.Maintenance(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, api.mode.Enabled())

		var resp struct {
			Data MaintenanceState `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, MaintenanceState{Enabled: true, Message: "upgrading", Started: "Sun, 02 Jul 2023 00:00:00 UTC"}, resp.Data)
	})

	t.Run("notice while enabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.writeMaintenanceNotice(w, httptest.NewRequest(http.MethodGet, "/graphql", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "120", w.Header().Get("Retry-After"))

		var resp struct {
			Status int              `json:"status"`
			Data   MaintenanceState `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
		assert.Equal(t, "upgrading", resp.Data.Message)
	})

	t.Run("disable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=disable", nil)
		w := httptest.NewRecorder()
		api.Maintenance(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, api.mode.Enabled())
		assert.Equal(t, MaintenanceState{}, api.mode.State())
	})

	t.Run("invalid status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=pause", nil)
		w := httptest.NewRecorder()
		api.Maintenance(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStatisticsHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil)
	api.stats.called = 3
	api.stats.Record(http.StatusOK)
	api.stats.Record(http.StatusOK)
	req := httptest.NewRequest(http.MethodGet, "/ops/stats", nil)
	w := httptest.NewRecorder()
	api.GetStatistics(w, req, httprouter.Params{})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data StatisticsReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(2), resp.Data.Called)
	assert.Equal(t, "0 mins", resp.Data.Uptime)
	assert.Equal(t, "Sun, 02 Jul 2023 00:00:00 UTC", resp.Data.Started)
	assert.Equal(t, map[int]uint64{http.StatusOK: 2}, resp.Data.Status)
	assert.False(t, resp.Data.Maintenance.Enabled)
}

func TestRuntimeTaskHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil)
	done := make(chan struct{})
	h := api.RuntimeTask("test.task", func() { close(done) })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ops/debug/gc", nil), httprouter.Params{})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"called":"test.task"`)
	<-done
}

func TestGetConfigsHandler(t *testing.T) {
	api := newTestAPIHandler(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/ops/configs", nil)
	w := httptest.NewRecorder()
	api.GetConfigs(w, req, httprouter.Params{})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status int    `json:"status"`
		Data   Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "/graphql", resp.Data.GraphQL.Path)
	assert.Equal(t, "4000", resp.Data.Server.Port)
}
