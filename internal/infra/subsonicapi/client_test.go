package subsonicapi

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestTokenAuthentication(t *testing.T) {
	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"subsonic-response":{"status":"ok","version":"1.16.1"}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "alice", "sesame", false)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if got.Get("u") != "alice" || got.Get("v") != "1.16.1" || got.Get("f") != "json" {
		t.Fatalf("missing base params: %v", got)
	}
	salt := got.Get("s")
	if salt == "" {
		t.Fatal("no salt sent")
	}
	sum := md5.Sum([]byte("sesame" + salt))
	if got.Get("t") != hex.EncodeToString(sum[:]) {
		t.Fatalf("token does not match md5(password+salt)")
	}
	if got.Get("p") != "" {
		t.Fatal("password must not be sent with token auth")
	}
}

func TestLegacyAuthentication(t *testing.T) {
	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"subsonic-response":{"status":"ok"}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "alice", "sesame", true)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if got.Get("p") != "enc:"+hex.EncodeToString([]byte("sesame")) {
		t.Fatalf("unexpected legacy password param %q", got.Get("p"))
	}
	if got.Get("t") != "" || got.Get("s") != "" {
		t.Fatal("token params must not be sent with legacy auth")
	}
}

func TestErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"subsonic-response":{"status":"failed","error":{"code":40,"message":"Wrong username or password"}}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "alice", "wrong", false)
	err := c.Ping(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if apiErr.Code != CodeWrongCredentials {
		t.Fatalf("unexpected code %d", apiErr.Code)
	}
}

func TestGetAlbumParsesSongs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/rest/getAlbum") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("id") != "al-42" {
			t.Errorf("unexpected id %q", r.URL.Query().Get("id"))
		}
		w.Write([]byte(`{"subsonic-response":{"status":"ok","album":{
			"id":"al-42","name":"Mezzanine","artist":"Massive Attack","artistId":"ar-7","year":1998,
			"song":[
				{"id":"tr-1","title":"Angel","track":1,"duration":379,"contentType":"audio/flac"},
				{"id":"tr-2","title":"Risingson","track":2,"duration":298,"contentType":"audio/flac"}
			]}}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "alice", "sesame", false)
	album, err := c.GetAlbum(context.Background(), "al-42")
	if err != nil {
		t.Fatalf("getAlbum: %v", err)
	}
	if album.Name != "Mezzanine" || album.Year != 1998 || len(album.Song) != 2 {
		t.Fatalf("unexpected album: %+v", album)
	}
	if album.Song[1].Title != "Risingson" || album.Song[1].Duration != 298 {
		t.Fatalf("unexpected song: %+v", album.Song[1])
	}
}

func TestStreamURLCarriesAuth(t *testing.T) {
	c := NewClient("https://music.example.org/", "alice", "sesame", false)
	raw := c.StreamURL("tr-9")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Path != "/rest/stream" {
		t.Fatalf("unexpected path %q", u.Path)
	}
	q := u.Query()
	if q.Get("id") != "tr-9" || q.Get("u") != "alice" || q.Get("t") == "" {
		t.Fatalf("missing params in %q", raw)
	}
}
