package client

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Do(t *testing.T) {
	t.Run("sends the bearer token and decodes the envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer dqy_test", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":{"status":"ok"}}`)
		}))
		defer server.Close()

		client, err := NewAPIClientWithConfig("dqy_test", server.URL)
		require.NoError(t, err)

		resp, err := client.Get("/health")

		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))
	})

	t.Run("error envelope becomes an APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":"knowledge base belongs to another owner"}`)
		}))
		defer server.Close()

		client, err := NewAPIClientWithConfig("dqy_test", server.URL)
		require.NoError(t, err)

		_, err = client.Delete("/knowledge-bases/kb-1")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "another owner")
	})

	t.Run("non-JSON error body is passed through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "upstream timeout")
		}))
		defer server.Close()

		client, err := NewAPIClientWithConfig("dqy_test", server.URL)
		require.NoError(t, err)

		_, err = client.Get("/health")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.Equal(t, "upstream timeout", apiErr.Message)
	})
}

func TestAPIClient_PostStream(t *testing.T) {
	t.Run("delivers each frame and stops at END", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"type\":\"SUCCESS\",\"message\":\"The answer\"}\n\n")
			fmt.Fprint(w, "data: {\"type\":\"SUCCESS\",\"message\":\" is 42.\"}\n\n")
			fmt.Fprint(w, "data: {\"type\":\"END\",\"message\":\"Streaming complete\"}\n\n")
		}))
		defer server.Close()

		client, err := NewAPIClientWithConfig("dqy_test", server.URL)
		require.NoError(t, err)

		var events []StreamEvent
		err = client.PostStream("/query", map[string]string{"question": "what?"}, func(ev StreamEvent) {
			events = append(events, ev)
		})

		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "SUCCESS", events[0].Type)
		assert.Equal(t, "The answer", events[0].Message)
		assert.Equal(t, "END", events[2].Type)
	})

	t.Run("terminal ERROR frame ends the stream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"type\":\"ERROR\",\"message\":\"embedding provider unavailable\"}\n\n")
			fmt.Fprint(w, "data: {\"type\":\"SUCCESS\",\"message\":\"never delivered\"}\n\n")
		}))
		defer server.Close()

		client, err := NewAPIClientWithConfig("dqy_test", server.URL)
		require.NoError(t, err)

		var events []StreamEvent
		err = client.PostStream("/query", map[string]string{"question": "what?"}, func(ev StreamEvent) {
			events = append(events, ev)
		})

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "ERROR", events[0].Type)
	})

	t.Run("pre-stream rejection surfaces as an APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"[VALIDATION_ERROR] query is required"}`)
		}))
		defer server.Close()

		client, err := NewAPIClientWithConfig("dqy_test", server.URL)
		require.NoError(t, err)

		err = client.PostStream("/query", map[string]string{"question": ""}, func(StreamEvent) {
			t.Fatal("no frames expected")
		})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "query is required")
	})

	t.Run("non-data lines are ignored", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, ": keepalive\n\n")
			fmt.Fprint(w, "data: {\"type\":\"END\",\"message\":\"Streaming complete\"}\n\n")
		}))
		defer server.Close()

		client, err := NewAPIClientWithConfig("dqy_test", server.URL)
		require.NoError(t, err)

		var events []StreamEvent
		err = client.PostStream("/query", map[string]string{"question": "what?"}, func(ev StreamEvent) {
			events = append(events, ev)
		})

		require.NoError(t, err)
		require.Len(t, events, 1)
	})
}

func TestIsValidAPIKey(t *testing.T) {
	assert.True(t, IsValidAPIKey("dqy_"+strings.Repeat("a1", 32)))
	assert.False(t, IsValidAPIKey(""))
	assert.False(t, IsValidAPIKey("dqy_short"))
	assert.False(t, IsValidAPIKey(strings.Repeat("a1", 32)))
	assert.False(t, IsValidAPIKey("dqy_"+strings.Repeat("zx", 32)))
}
