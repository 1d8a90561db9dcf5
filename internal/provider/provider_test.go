package provider

import "testing"

func TestParseKindRoundTrip(t *testing.T) {
	for _, kind := range []Kind{KindLocal, KindSubsonic, KindJellyfin, KindQobuz} {
		parsed, err := ParseKind(kind.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", kind.String(), err)
		}
		if parsed != kind {
			t.Fatalf("round trip %v -> %v", kind, parsed)
		}
	}
	if _, err := ParseKind("spotify"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestCheckArguments(t *testing.T) {
	valid := map[string]string{
		"server":   "https://music.example.org",
		"username": "alice",
		"password": "s3cret",
	}
	if err := CheckArguments(KindSubsonic, valid); err != nil {
		t.Fatalf("valid arguments rejected: %v", err)
	}

	missing := map[string]string{"server": "https://music.example.org"}
	if err := CheckArguments(KindSubsonic, missing); err == nil {
		t.Fatal("expected error for missing username")
	}

	badURL := map[string]string{
		"server":   "ftp://music.example.org",
		"username": "alice",
		"password": "s3cret",
	}
	if err := CheckArguments(KindSubsonic, badURL); err == nil {
		t.Fatal("expected error for non-http server URL")
	}

	unknown := map[string]string{
		"server":   "https://music.example.org",
		"username": "alice",
		"password": "s3cret",
		"token":    "abc",
	}
	if err := CheckArguments(KindSubsonic, unknown); err == nil {
		t.Fatal("expected error for unknown key")
	}

	badBool := map[string]string{
		"server":                    "https://music.example.org",
		"username":                  "alice",
		"password":                  "s3cret",
		"use_legacy_authentication": "yes",
	}
	if err := CheckArguments(KindSubsonic, badBool); err == nil {
		t.Fatal("expected error for non-boolean value")
	}
}

func TestHiddenArgumentsMarked(t *testing.T) {
	for _, kind := range []Kind{KindSubsonic, KindJellyfin, KindQobuz} {
		found := false
		for _, arg := range Arguments(kind) {
			if arg.Key == "password" && arg.Hidden {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: password argument not marked hidden", kind)
		}
	}
}
