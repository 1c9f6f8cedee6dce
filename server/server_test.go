package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rafalkola/language-ai-bot/core"
	"github.com/rafalkola/language-ai-bot/memory"
	"github.com/rafalkola/language-ai-bot/memory/embedder/mock"
	"github.com/rafalkola/language-ai-bot/memory/store/chromem"
	"github.com/rafalkola/language-ai-bot/profile"
	"github.com/rafalkola/language-ai-bot/prompt"
	"github.com/rafalkola/language-ai-bot/server"
	"github.com/rafalkola/language-ai-bot/session"
)

// echoResponder replies with a fixed string regardless of input.
type echoResponder struct {
	reply string
}

func (e echoResponder) Respond(ctx context.Context, system string, messages []core.Message, owner string) (string, error) {
	return e.reply, nil
}

func newTestServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	store, err := chromem.New("test")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	memories := memory.NewService(store, mock.New(32), nil)
	t.Cleanup(memories.Close)

	profiles, err := profile.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create profile store: %v", err)
	}

	deps := session.Deps{
		Agent:    echoResponder{reply: reply},
		Composer: prompt.NewComposer(memories),
		Memories: memories,
		Profiles: profiles,
	}

	ts := httptest.NewServer(server.New(deps, memories, profiles).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp, decoded
}

func field(t *testing.T, body map[string]json.RawMessage, key string) string {
	t.Helper()
	var s string
	if raw, ok := body[key]; ok {
		if err := json.Unmarshal(raw, &s); err != nil {
			t.Fatalf("Field %q is not a string: %s", key, raw)
		}
	}
	return s
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t, "ok")

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_SessionLifecycle(t *testing.T) {
	ts := newTestServer(t, "Excellent work, 8/10 today!")

	resp, body := postJSON(t, ts.URL+"/api/session/start", map[string]string{
		"user_id": "alice", "language": "Spanish", "level": "B1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Start: expected 200, got %d", resp.StatusCode)
	}
	if got := field(t, body, "state"); got != "mode-selecting" {
		t.Errorf("Start: expected mode-selecting, got %q", got)
	}

	resp, body = postJSON(t, ts.URL+"/api/session/mode", map[string]string{
		"user_id": "alice", "mode": "conversation",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Mode: expected 200, got %d", resp.StatusCode)
	}
	if got := field(t, body, "state"); got != "chatting" {
		t.Errorf("Mode: expected chatting, got %q", got)
	}

	resp, body = postJSON(t, ts.URL+"/api/session/chat", map[string]string{
		"user_id": "alice", "message": "hola, ¿cómo estás?",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Chat: expected 200, got %d", resp.StatusCode)
	}
	if got := field(t, body, "message"); got != "Excellent work, 8/10 today!" {
		t.Errorf("Chat: unexpected reply %q", got)
	}

	resp, body = postJSON(t, ts.URL+"/api/session/end", map[string]string{"user_id": "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("End: expected 200, got %d", resp.StatusCode)
	}
	var score float64
	if err := json.Unmarshal(body["score"], &score); err != nil || score != 8 {
		t.Errorf("End: expected score 8, got %s", body["score"])
	}

	// Profile reflects the finished lesson.
	profResp, err := http.Get(ts.URL + "/api/profile/alice")
	if err != nil {
		t.Fatalf("Profile request failed: %v", err)
	}
	defer profResp.Body.Close()
	var p profile.Profile
	if err := json.NewDecoder(profResp.Body).Decode(&p); err != nil {
		t.Fatalf("Failed to decode profile: %v", err)
	}
	if len(p.LessonHistory) != 1 {
		t.Errorf("Expected 1 lesson in profile, got %d", len(p.LessonHistory))
	}

	// Reset returns the session to idle.
	resp, body = postJSON(t, ts.URL+"/api/session/reset", map[string]string{"user_id": "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Reset: expected 200, got %d", resp.StatusCode)
	}
	if got := field(t, body, "state"); got != "idle" {
		t.Errorf("Reset: expected idle, got %q", got)
	}
}

func TestServer_InvalidTransitionIsConflict(t *testing.T) {
	ts := newTestServer(t, "ok")

	resp, _ := postJSON(t, ts.URL+"/api/session/mode", map[string]string{
		"user_id": "bob", "mode": "grammar",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for mode before start, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/api/session/chat", map[string]string{
		"user_id": "bob", "message": "hi",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for chat before start, got %d", resp.StatusCode)
	}
}

func TestServer_BadInputsRejected(t *testing.T) {
	ts := newTestServer(t, "ok")

	resp, _ := postJSON(t, ts.URL+"/api/session/start", map[string]string{
		"user_id": "carol", "language": "Klingon", "level": "B1",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad language, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/api/session/start", map[string]string{
		"user_id": "carol", "language": "Spanish", "level": "Z9",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad level, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/api/session/start", map[string]string{
		"language": "Spanish", "level": "B1",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing user id, got %d", resp.StatusCode)
	}
}

func TestServer_MemoriesEndpoint(t *testing.T) {
	ts := newTestServer(t, "ok")

	resp, err := http.Get(ts.URL + "/api/memories/alice?q=anything")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Memories []string `json:"memories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if body.Memories == nil {
		t.Error("Expected empty array, not null")
	}
}
