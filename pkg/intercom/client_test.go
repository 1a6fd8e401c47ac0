package intercom

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talent-success/melvin/pkg/config"
)

func TestClientRetriesRateLimits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "123", "title": "Refund request"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	conv, err := client.GetConversation(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "Refund request", conv.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetConversation(context.Background(), "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	// Initial attempt plus maxRetries retries.
	assert.Equal(t, int32(4), calls.Load())
}

func TestClientDoesNotRetryOtherErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"errors":[{"code":"server_error"}]}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetConversation(context.Background(), "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientSendsAuthHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "2.14", r.Header.Get("Intercom-Version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"id": "123"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetConversation(context.Background(), "123")
	require.NoError(t, err)
}

func TestGetConversationData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/123", r.URL.Path)
		assert.Equal(t, "plaintext", r.URL.Query().Get("display_as"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "123",
			"title": "  Application status  ",
			"source": {
				"body": "What is the status of my application?",
				"author": {"type": "user", "name": "Jordan Reyes", "email": "jordan@example.com"},
				"attachments": [
					{"name": "screenshot.png", "content_type": "image/png", "url": "https://cdn.example.com/s.png", "filesize": 2048, "width": 800, "height": 600}
				]
			},
			"conversation_parts": {
				"conversation_parts": [
					{"part_type": "comment", "body": "Thanks for reaching out!", "author": {"type": "admin", "name": "Support"}},
					{"part_type": "note", "body": "internal triage note", "author": {"type": "admin"}},
					{"part_type": "assignment", "body": "", "author": {"type": "bot"}},
					{"part_type": "comment", "body": "Any update?", "author": {"type": "user", "email": "jordan@example.com"}}
				]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	data, err := client.GetConversationData(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, "123", data.ConversationID)
	assert.Equal(t, "Application status", data.Subject)
	assert.Equal(t, "Jordan Reyes", data.UserName)
	assert.Equal(t, "jordan@example.com", data.UserEmail)

	// Source message, admin comment, user comment. Notes and system
	// events are never part of the conversation.
	require.Len(t, data.Messages, 3)
	assert.Equal(t, "user", data.Messages[0].Role)
	assert.Equal(t, "What is the status of my application?", data.Messages[0].Content)
	require.Len(t, data.Messages[0].Attachments, 1)
	assert.Equal(t, "screenshot.png", data.Messages[0].Attachments[0].Name)
	assert.Equal(t, "image/png", data.Messages[0].Attachments[0].ContentType)
	assert.Equal(t, "assistant", data.Messages[1].Role)
	assert.Equal(t, "user", data.Messages[2].Role)
}

func TestGetConversationDataContactFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations/55", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "55",
			"source": {
				"body": "Hello from a lead",
				"author": {"type": "lead", "name": "Lead"}
			},
			"conversation_parts": {"conversation_parts": []},
			"contacts": {"contacts": [{"id": "contact-9"}]}
		}`))
	})
	mux.HandleFunc("/contacts/contact-9", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "contact-9", "name": "Riley Chen", "email": "riley@example.com"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	data, err := client.GetConversationData(context.Background(), "55")
	require.NoError(t, err)
	assert.Equal(t, "riley@example.com", data.UserEmail)
	assert.Equal(t, "Riley Chen", data.UserName)
}

func TestAddNote(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/conversations/123/reply", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"id": "123"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.AddNote(context.Background(), "123", "🚨 Escalation: needs human review")
	require.NoError(t, err)

	assert.Equal(t, "note", captured["message_type"])
	assert.Equal(t, "admin", captured["type"])
	assert.Equal(t, "8010164", captured["admin_id"])
	assert.Equal(t, "🚨 Escalation: needs human review", captured["body"])
}

func TestSendMessage(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"id": "123"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.SendMessage(context.Background(), "123", "Hello!\n\nYour application is in review.")
	require.NoError(t, err)

	assert.Equal(t, "comment", captured["message_type"])
	assert.Equal(t, "Hello!\n\nYour application is in review.", captured["body"])
}

func TestSnoozeConversation(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/123/parts", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"id": "123"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	until := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := client.SnoozeConversation(context.Background(), "123", until)
	require.NoError(t, err)

	assert.Equal(t, "snoozed", captured["message_type"])
	assert.Equal(t, float64(until.Unix()), captured["snoozed_until"])
}

func TestUpdateCustomAttribute(t *testing.T) {
	var captured map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations/123", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"id": "123", "state": "open", "custom_attributes": {"Melvin Status": "success"}}`))
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &captured))
			_, _ = w.Write([]byte(`{"id": "123"}`))
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.UpdateCustomAttribute(context.Background(), "123", "Melvin Status", "route_to_team")
	require.NoError(t, err)

	attrs, ok := captured["custom_attributes"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "route_to_team", attrs["Melvin Status"])
}

func TestUpdateCustomAttributeRejectsInvalidName(t *testing.T) {
	client := newTestClient("http://unused.invalid")

	err := client.UpdateCustomAttribute(context.Background(), "123", "bad$name", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAttributeName)
}

func TestDryRunSkipsWrites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s request in dry-run mode: %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id": "123", "state": "open"}`))
	}))
	defer server.Close()

	client := NewClient(testIntercomConfig(server.URL), true)

	ctx := context.Background()
	require.NoError(t, client.AddNote(ctx, "123", "note"))
	require.NoError(t, client.SendMessage(ctx, "123", "message"))
	require.NoError(t, client.SnoozeConversation(ctx, "123", time.Now().Add(5*time.Minute)))
	require.NoError(t, client.UpdateCustomAttribute(ctx, "123", "Melvin Status", "success"))
}

func testIntercomConfig(baseURL string) config.IntercomConfig {
	return config.IntercomConfig{
		APIKey:         "test-key",
		AdminID:        "8010164",
		BaseURL:        baseURL,
		APIVersion:     "2.14",
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(testIntercomConfig(baseURL), false)
}
