package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, cfg *config.Config) *Executor {
	t.Helper()
	exec, err := NewExecutor(cfg)
	require.NoError(t, err)
	return exec
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("posts payload key and unwraps response envelope", func(t *testing.T) {
		var got map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"response":{"temp":12}}`))
		}))
		defer server.Close()

		exec := newExecutor(t, &config.Config{Tools: []config.ToolConfig{
			{Name: "weather", URL: server.URL, PayloadKey: "prompt", Timeout: config.Duration(time.Second)},
		}})

		res := exec.Execute(ctx, "weather", "oslo")
		require.True(t, res.Success)
		assert.JSONEq(t, `{"temp":12}`, string(res.Output))
		assert.Equal(t, map[string]string{"prompt": "oslo"}, got)
	})

	t.Run("output envelope key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"output":"twelve degrees"}`))
		}))
		defer server.Close()

		exec := newExecutor(t, &config.Config{Tools: []config.ToolConfig{
			{Name: "weather", URL: server.URL, Timeout: config.Duration(time.Second)},
		}})

		res := exec.Execute(ctx, "weather", "oslo")
		require.True(t, res.Success)
		assert.Equal(t, `"twelve degrees"`, string(res.Output))
	})

	t.Run("plain text body becomes json string", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("twelve degrees"))
		}))
		defer server.Close()

		exec := newExecutor(t, &config.Config{Tools: []config.ToolConfig{
			{Name: "weather", URL: server.URL, Timeout: config.Duration(time.Second)},
		}})

		res := exec.Execute(ctx, "weather", "oslo")
		require.True(t, res.Success)
		assert.Equal(t, `"twelve degrees"`, string(res.Output))
	})

	t.Run("non 2xx is a failed result not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		exec := newExecutor(t, &config.Config{Tools: []config.ToolConfig{
			{Name: "weather", URL: server.URL, Timeout: config.Duration(time.Second)},
		}})

		res := exec.Execute(ctx, "weather", "oslo")
		assert.False(t, res.Success)
		assert.Contains(t, res.ErrorMessage, "endpoint returned 500")
	})

	t.Run("timeout is a failed result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		exec := newExecutor(t, &config.Config{Tools: []config.ToolConfig{
			{Name: "weather", URL: server.URL, Timeout: config.Duration(20 * time.Millisecond)},
		}})

		res := exec.Execute(ctx, "weather", "oslo")
		assert.False(t, res.Success)
		assert.Contains(t, res.ErrorMessage, "request failed")
	})

	t.Run("unknown tool", func(t *testing.T) {
		exec := newExecutor(t, &config.Config{})
		assert.False(t, exec.Known("weather"))
		res := exec.Execute(ctx, "weather", "oslo")
		assert.False(t, res.Success)
	})
}

func TestRouteResolution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"response":"` + r.URL.Path + `"}`))
	}))
	defer server.Close()

	t.Run("first matching route wins", func(t *testing.T) {
		exec := newExecutor(t, &config.Config{
			Tools: []config.ToolConfig{{Name: "crm_lookup"}},
			Routes: []config.RouteConfig{
				{Pattern: "crm_*", URL: server.URL + "/crm", Timeout: config.Duration(time.Second)},
				{Pattern: "*", URL: server.URL + "/fallback", Timeout: config.Duration(time.Second)},
			},
		})
		res := exec.Execute(context.Background(), "crm_lookup", "find acme")
		require.True(t, res.Success)
		assert.Equal(t, `"/crm"`, string(res.Output))
	})

	t.Run("tool url beats routes", func(t *testing.T) {
		exec := newExecutor(t, &config.Config{
			Tools: []config.ToolConfig{{Name: "crm_lookup", URL: server.URL + "/direct", Timeout: config.Duration(time.Second)}},
			Routes: []config.RouteConfig{
				{Pattern: "crm_*", URL: server.URL + "/crm", Timeout: config.Duration(time.Second)},
			},
		})
		res := exec.Execute(context.Background(), "crm_lookup", "find acme")
		require.True(t, res.Success)
		assert.Equal(t, `"/direct"`, string(res.Output))
	})

	t.Run("unroutable tool fails construction", func(t *testing.T) {
		_, err := NewExecutor(&config.Config{Tools: []config.ToolConfig{{Name: "stray"}}})
		require.Error(t, err)
	})
}
