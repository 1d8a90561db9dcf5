package datasource

import "github.com/anuragxone/twelve-remix/internal/media"

// Collection names the URI path segment each entity class lives under.
// Sources mint URIs of the form prefix/collection/id.
func Collection(t media.ItemType) string {
	switch t {
	case media.ItemTypeAlbum:
		return "albums"
	case media.ItemTypeArtist:
		return "artists"
	case media.ItemTypeAudio:
		return "audio"
	case media.ItemTypeGenre:
		return "genres"
	case media.ItemTypePlaylist:
		return "playlists"
	default:
		return ""
	}
}

// ClassifyURI returns the item type of a prefix/collection/id URI, or
// ok=false when the URI is not under prefix or names no known collection.
func ClassifyURI(prefix, uri media.URI) (media.ItemType, bool) {
	if !uri.HasPrefix(prefix) {
		return 0, false
	}
	rest := uri.Segments()[len(prefix.Segments()):]
	if len(rest) == 0 {
		return 0, false
	}
	switch rest[0] {
	case "albums":
		return media.ItemTypeAlbum, true
	case "artists":
		return media.ItemTypeArtist, true
	case "audio":
		return media.ItemTypeAudio, true
	case "genres":
		return media.ItemTypeGenre, true
	case "playlists":
		return media.ItemTypePlaylist, true
	default:
		return 0, false
	}
}
