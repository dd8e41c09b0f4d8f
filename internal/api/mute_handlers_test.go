package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/mute"
)

func newTestMuteHandlers() *MuteHandlers {
	return NewMuteHandlers(mute.NewInMemoryRepository())
}

func muteRequest(t *testing.T, method, word, userID string) *http.Request {
	t.Helper()
	body, err := json.Marshal(MuteWordRequest{Word: word})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(method, "/mutes", bytes.NewReader(body))
	if userID != "" {
		req = authed(req, userID)
	}
	return req
}

// TestAddMuteWord_Success tests adding a word and the returned list.
func TestAddMuteWord_Success(t *testing.T) {
	h := newTestMuteHandlers()

	w := httptest.NewRecorder()
	h.AddMuteWord(w, muteRequest(t, http.MethodPost, "  Diet ", "user1"))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp MuteWordsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Words) != 1 || resp.Words[0] != "diet" {
		t.Errorf("expected normalized word list [diet], got %v", resp.Words)
	}
}

// TestAddMuteWord_Invalid tests rejection of a blank word.
func TestAddMuteWord_Invalid(t *testing.T) {
	h := newTestMuteHandlers()

	w := httptest.NewRecorder()
	h.AddMuteWord(w, muteRequest(t, http.MethodPost, "   ", "user1"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeInvalidMuteWord {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidMuteWord, errResp.Error.Code)
	}
}

// TestAddMuteWord_ListFull tests the per-user cap.
func TestAddMuteWord_ListFull(t *testing.T) {
	h := newTestMuteHandlers()

	for i := 0; i < mute.MaxWordsPerUser; i++ {
		w := httptest.NewRecorder()
		h.AddMuteWord(w, muteRequest(t, http.MethodPost, "word"+string(rune('a'+i%26))+string(rune('a'+i/26)), "user1"))
		if w.Code != http.StatusCreated {
			t.Fatalf("add %d: expected status 201, got %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	h.AddMuteWord(w, muteRequest(t, http.MethodPost, "overflow", "user1"))

	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 when list is full, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeMuteListFull {
		t.Errorf("expected code %s, got %s", ErrCodeMuteListFull, errResp.Error.Code)
	}
}

// TestRemoveMuteWord tests removal, including a word never added.
func TestRemoveMuteWord(t *testing.T) {
	h := newTestMuteHandlers()

	h.AddMuteWord(httptest.NewRecorder(), muteRequest(t, http.MethodPost, "diet", "user1"))

	w := httptest.NewRecorder()
	h.RemoveMuteWord(w, muteRequest(t, http.MethodDelete, "DIET", "user1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp MuteWordsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Words) != 0 {
		t.Errorf("expected empty word list, got %v", resp.Words)
	}

	// Removing again is a no-op
	w = httptest.NewRecorder()
	h.RemoveMuteWord(w, muteRequest(t, http.MethodDelete, "diet", "user1"))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 on repeat removal, got %d", w.Code)
	}
}

// TestListMuteWords_RequiresAuth tests anonymous rejection.
func TestListMuteWords_RequiresAuth(t *testing.T) {
	h := newTestMuteHandlers()

	req := httptest.NewRequest(http.MethodGet, "/mutes", nil)
	w := httptest.NewRecorder()

	h.ListMuteWords(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

// TestHandleMutes_MethodNotAllowed tests dispatch rejection.
func TestHandleMutes_MethodNotAllowed(t *testing.T) {
	h := newTestMuteHandlers()

	req := authed(httptest.NewRequest(http.MethodPatch, "/mutes", nil), "user1")
	w := httptest.NewRecorder()

	h.HandleMutes(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}
