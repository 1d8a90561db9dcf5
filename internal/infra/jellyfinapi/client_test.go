package jellyfinapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLazyAuthenticationAndTokenReuse(t *testing.T) {
	var authCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Users/AuthenticateByName":
			authCalls++
			var creds map[string]string
			json.NewDecoder(r.Body).Decode(&creds)
			if creds["Username"] != "bob" || creds["Pw"] != "pw" {
				t.Errorf("unexpected credentials: %v", creds)
			}
			if !strings.Contains(r.Header.Get("Authorization"), `DeviceId="dev-1"`) {
				t.Errorf("missing device id in %q", r.Header.Get("Authorization"))
			}
			json.NewEncoder(w).Encode(authResponse{AccessToken: "tok-1"})
		case strings.HasPrefix(r.URL.Path, "/Users/") && strings.HasSuffix(r.URL.Path, "/Items"):
			if r.Header.Get("X-Emby-Token") != "tok-1" {
				t.Errorf("missing token header")
			}
			w.Write([]byte(`{"Items":[{"Id":"a1","Name":"Album One","Type":"MusicAlbum"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "bob", "pw", "dev-1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := c.Items(ctx, ItemsOptions{IncludeItemTypes: "MusicAlbum"})
		if err != nil {
			t.Fatalf("items: %v", err)
		}
		if len(items) != 1 || items[0].Name != "Album One" {
			t.Fatalf("unexpected items: %+v", items)
		}
	}
	if authCalls != 1 {
		t.Fatalf("expected a single authentication, got %d", authCalls)
	}
}

func TestExpiredTokenRetriesOnce(t *testing.T) {
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Users/AuthenticateByName":
			token := "tok-new"
			if len(tokens) == 0 {
				token = "tok-stale"
			}
			json.NewEncoder(w).Encode(authResponse{AccessToken: token})
		default:
			tok := r.Header.Get("X-Emby-Token")
			tokens = append(tokens, tok)
			if tok == "tok-stale" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"Items":[]}`))
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "bob", "pw", "dev-1")
	if _, err := c.Items(context.Background(), ItemsOptions{}); err != nil {
		t.Fatalf("items after token refresh: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "tok-stale" || tokens[1] != "tok-new" {
		t.Fatalf("unexpected token sequence: %v", tokens)
	}
}

func TestPersistentUnauthorizedSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Users/AuthenticateByName" {
			json.NewEncoder(w).Encode(authResponse{AccessToken: "tok"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, "bob", "pw", "dev-1")
	_, err := c.Items(context.Background(), ItemsOptions{})
	statusErr, ok := err.(*StatusError)
	if !ok || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError after one retry, got %v", err)
	}
}

func TestDurationMs(t *testing.T) {
	item := Item{RunTimeTicks: 3_790_000_000} // 379 seconds
	if got := item.DurationMs(); got != 379_000 {
		t.Fatalf("DurationMs = %d, want 379000", got)
	}
}

func TestStreamURL(t *testing.T) {
	c := NewClient("https://jellyfin.example.org/", "bob", "pw", "dev-1")
	want := "https://jellyfin.example.org/Audio/abc/stream?static=true"
	if got := c.StreamURL("abc"); got != want {
		t.Fatalf("StreamURL = %q, want %q", got, want)
	}
}
