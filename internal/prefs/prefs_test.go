package prefs

import (
	"path/filepath"
	"testing"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
)

func newTestPrefs(t *testing.T) *Prefs {
	t.Helper()
	p := New(filepath.Join(t.TempDir(), "prefs.yaml"))
	if err := p.Load(); err != nil {
		t.Fatalf("failed to load prefs: %v", err)
	}
	return p
}

func TestNavigationProviderRoundTrip(t *testing.T) {
	p := newTestPrefs(t)

	if _, ok := p.NavigationProvider(); ok {
		t.Fatal("fresh prefs should have no navigation provider")
	}

	want := provider.Identifier{Kind: provider.KindSubsonic, InstanceID: 3}
	if err := p.SetNavigationProvider(want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := p.NavigationProvider()
	if !ok || got != want {
		t.Fatalf("got (%v, %v), want (%v, true)", got, ok, want)
	}
}

func TestNavigationProviderSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	first := New(path)
	if err := first.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	want := provider.Identifier{Kind: provider.KindJellyfin, InstanceID: 7}
	if err := first.SetNavigationProvider(want); err != nil {
		t.Fatalf("set: %v", err)
	}

	second := New(path)
	if err := second.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := second.NavigationProvider()
	if !ok || got != want {
		t.Fatalf("selection lost across reload: got (%v, %v)", got, ok)
	}
}

func TestSortingRule(t *testing.T) {
	p := newTestPrefs(t)

	if _, ok := p.SortingRule("albums"); ok {
		t.Fatal("fresh prefs should have no sorting rule")
	}
	want := media.SortingRule{Strategy: media.SortByArtistName, Reverse: true}
	if err := p.SetSortingRule("albums", want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := p.SortingRule("albums")
	if !ok || got != want {
		t.Fatalf("got (%v, %v), want (%v, true)", got, ok, want)
	}

	// other keys unaffected
	if _, ok := p.SortingRule("artists"); ok {
		t.Fatal("unrelated key picked up a rule")
	}
}
