package acceptance

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// fakeProvider stands in for the Reddit, Twitter and Spotify OAuth and
// profile endpoints. Codes are only accepted after issue, and a code issued
// with a PKCE challenge needs the matching verifier.
type fakeProvider struct {
	server *httptest.Server

	mu         sync.Mutex
	challenges map[string]string
	next       int
}

func newFakeProvider() *fakeProvider {
	f := &fakeProvider{challenges: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{provider}/token", f.handleToken)
	mux.HandleFunc("GET /api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		writeFakeJSON(w, map[string]any{"id": "t2_1", "name": "spez"})
	})
	mux.HandleFunc("GET /2/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeFakeJSON(w, map[string]any{"data": map[string]any{
			"id":         "12",
			"name":       "Jack",
			"username":   "jack",
			"created_at": "2006-03-21T20:50:14.000Z",
		}})
	})

	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeProvider) Close() { f.server.Close() }

func (f *fakeProvider) URL() string { return f.server.URL }

// issue simulates the user approving the request and returns the code the
// provider would append to the callback.
func (f *fakeProvider) issue(challenge string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	code := fmt.Sprintf("code-%d", f.next)
	f.challenges[code] = challenge
	return code
}

func (f *fakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if _, _, ok := r.BasicAuth(); !ok {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
		return
	}

	code := r.PostForm.Get("code")
	f.mu.Lock()
	challenge, ok := f.challenges[code]
	delete(f.challenges, code)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	if challenge != "" {
		sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
		if base64.RawURLEncoding.EncodeToString(sum[:]) != challenge {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
			return
		}
	}

	writeFakeJSON(w, map[string]any{
		"access_token":  "access-" + strings.TrimPrefix(code, "code-"),
		"refresh_token": "refresh-" + strings.TrimPrefix(code, "code-"),
		"token_type":    "bearer",
		"expires_in":    3600,
	})
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
