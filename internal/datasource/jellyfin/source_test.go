package jellyfin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/status"
	"github.com/anuragxone/twelve-remix/internal/store"
)

const (
	albumID = "11111111-2222-3333-4444-555555555555"
	audioID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Open(); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func authStub(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]any{
		"AccessToken": "tok",
		"User":        map[string]string{"Id": "u1"},
	})
}

func newTestSource(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Source, *store.Store) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Users/AuthenticateByName" {
			authStub(w)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	st := testStore(t)
	id := provider.Identifier{Kind: provider.KindJellyfin, InstanceID: 2}
	src := New(id, store.JellyfinConfig{
		ID:       2,
		Name:     "Test",
		URL:      server.URL,
		Username: "bob",
		Password: "pw",
		DeviceID: "dev-1",
	}, st)
	return src, st
}

func TestMalformedIDIsNotFoundWithoutNetwork(t *testing.T) {
	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to %s", r.URL.Path)
	})

	got := src.Album(context.Background(), "jellyfin/2/albums/not-a-uuid")
	if !got.IsError() || got.Kind() != status.NotFound {
		t.Fatalf("expected not_found, got state=%v kind=%v", got.State(), got.Kind())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		httpStatus int
		want       status.ErrorKind
	}{
		{http.StatusNotFound, status.NotFound},
		{http.StatusForbidden, status.InvalidCredentials},
		{http.StatusInternalServerError, status.IO},
	}
	for _, c := range cases {
		src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.httpStatus)
		})
		got := src.Audio(context.Background(), media.URI("jellyfin/2/audio/"+audioID))
		if !got.IsError() || got.Kind() != c.want {
			t.Errorf("HTTP %d: got state=%v kind=%v, want %v", c.httpStatus, got.State(), got.Kind(), c.want)
		}
	}
}

func TestAlbumWithTracks(t *testing.T) {
	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/Items/"+albumID):
			json.NewEncoder(w).Encode(map[string]any{
				"Id": albumID, "Name": "Dummy", "Type": "MusicAlbum",
				"AlbumArtist": "Portishead", "ProductionYear": 1994,
			})
		case strings.HasSuffix(r.URL.Path, "/Items"):
			if r.URL.Query().Get("ParentId") != albumID {
				t.Errorf("missing ParentId, got %v", r.URL.Query())
			}
			w.Write([]byte(`{"Items":[
				{"Id":"` + audioID + `","Name":"Mysterons","Type":"Audio","IndexNumber":1,"RunTimeTicks":3000000000}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	got := src.Album(context.Background(), media.URI("jellyfin/2/albums/"+albumID))
	if !got.IsSuccess() {
		t.Fatalf("album failed: kind=%v", got.Kind())
	}
	album := got.Data()
	if album.Album.Title != "Dummy" || album.Album.Year != 1994 {
		t.Fatalf("unexpected album: %+v", album.Album)
	}
	if len(album.Tracks) != 1 || album.Tracks[0].DurationMs != 300_000 {
		t.Fatalf("unexpected tracks: %+v", album.Tracks)
	}
	if album.Tracks[0].URI != media.URI("jellyfin/2/audio/"+audioID) {
		t.Fatalf("unexpected track URI %q", album.Tracks[0].URI)
	}
}

func TestDeletePlaylistNotImplemented(t *testing.T) {
	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to %s", r.URL.Path)
	})

	got := src.DeletePlaylist(context.Background(), media.URI("jellyfin/2/playlists/"+albumID))
	if !got.IsError() || got.Kind() != status.NotImplemented {
		t.Fatalf("expected not_implemented, got state=%v kind=%v", got.State(), got.Kind())
	}
}

func TestOnAudioPlayedStripsStaticSuffix(t *testing.T) {
	src, st := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to %s", r.URL.Path)
	})

	got := src.OnAudioPlayed(context.Background(), media.URI("jellyfin/2/audio/"+audioID))
	if !got.IsSuccess() {
		t.Fatalf("on played failed: kind=%v", got.Kind())
	}

	uri, ok, err := st.LastPlayed(src.lastPlayedKey())
	if err != nil || !ok {
		t.Fatalf("last played not recorded: ok=%v err=%v", ok, err)
	}
	if strings.Contains(uri, "static=true") {
		t.Fatalf("static suffix not stripped: %q", uri)
	}
	if !strings.HasSuffix(uri, "/Audio/"+audioID+"/stream") {
		t.Fatalf("unexpected last played uri %q", uri)
	}
}

func TestRemoveNonMemberIsNoOp(t *testing.T) {
	var removeCalled bool
	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			removeCalled = true
			return
		}
		// playlist items listing with no matching entries
		w.Write([]byte(`{"Items":[{"Id":"` + albumID + `","PlaylistItemId":"p1"}]}`))
	})

	got := src.RemoveAudioFromPlaylist(context.Background(),
		media.URI("jellyfin/2/playlists/"+albumID),
		media.URI("jellyfin/2/audio/"+audioID))
	if !got.IsSuccess() {
		t.Fatalf("expected success, got kind=%v", got.Kind())
	}
	if removeCalled {
		t.Fatal("no removal call expected for a non-member")
	}
}
