package mpd_test

import (
	"testing"

	"github.com/anuragxone/twelve-remix/internal/infra/mpd"
)

func TestNewClient(t *testing.T) {
	client := mpd.NewClient("localhost", 6600, "")

	if client == nil {
		t.Error("NewClient should return a non-nil client")
	}
}

func TestClientConnectFailure(t *testing.T) {
	// Test connection to non-existent server
	client := mpd.NewClient("localhost", 16600, "") // Wrong port

	err := client.Connect()
	if err == nil {
		t.Error("Connect should fail for non-existent server")
		client.Close()
	}
}

func TestClientPingWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 6600, "")

	err := client.Ping()
	if err == nil {
		t.Error("Ping should fail when not connected")
	}
}

func TestClientListAlbumsWithoutServer(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	_, err := client.ListAlbums()
	if err == nil {
		t.Error("ListAlbums should fail without a reachable server")
	}
}

func TestClientListTagWithoutServer(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	_, err := client.ListTag("genre")
	if err == nil {
		t.Error("ListTag should fail without a reachable server")
	}
}

func TestClientFindFileWithoutServer(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	_, err := client.FindFile("music/test.flac")
	if err == nil {
		t.Error("FindFile should fail without a reachable server")
	}
}

func TestClientSearchWithoutServer(t *testing.T) {
	client := mpd.NewClient("localhost", 16600, "")

	_, err := client.Search("query")
	if err == nil {
		t.Error("Search should fail without a reachable server")
	}
}
