package media

// Item is implemented by every media entity so heterogeneous lists (activity
// rows, search results) can be diffed by identity.
type Item interface {
	ItemURI() URI
}

// ItemType names the entity class a URI resolves to.
type ItemType int

const (
	ItemTypeAlbum ItemType = iota + 1
	ItemTypeArtist
	ItemTypeAudio
	ItemTypeGenre
	ItemTypePlaylist
)

func (t ItemType) String() string {
	switch t {
	case ItemTypeAlbum:
		return "album"
	case ItemTypeArtist:
		return "artist"
	case ItemTypeAudio:
		return "audio"
	case ItemTypeGenre:
		return "genre"
	case ItemTypePlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// AudioType distinguishes the broad kind of an audio item.
type AudioType int

const (
	AudioTypeMusic AudioType = iota
	AudioTypePodcast
	AudioTypeAudiobook
)

func (t AudioType) String() string {
	switch t {
	case AudioTypePodcast:
		return "podcast"
	case AudioTypeAudiobook:
		return "audiobook"
	default:
		return "music"
	}
}

// Album is a release grouping audio tracks.
type Album struct {
	URI        URI
	Title      string
	ArtistURI  URI
	ArtistName string
	Year       int
	Thumbnail  URI
}

func (a Album) ItemURI() URI { return a.URI }

// ContentsEqual reports whether every field matches. Identity alone is
// compared through ItemURI.
func (a Album) ContentsEqual(other Album) bool { return a == other }

// Artist is a performer or composer.
type Artist struct {
	URI       URI
	Name      string
	Thumbnail URI
}

func (a Artist) ItemURI() URI                    { return a.URI }
func (a Artist) ContentsEqual(other Artist) bool { return a == other }

// Audio is a single playable track. PlaybackURI, when set, is the stream
// location and may differ from the identity URI.
type Audio struct {
	URI         URI
	PlaybackURI URI
	MimeType    string
	Title       string
	Type        AudioType
	DurationMs  int64
	ArtistURI   URI
	ArtistName  string
	AlbumURI    URI
	AlbumTitle  string
	DiscNumber  int
	TrackNumber int
	GenreURI    URI
	GenreName   string
	Year        int
}

func (a Audio) ItemURI() URI                   { return a.URI }
func (a Audio) ContentsEqual(other Audio) bool { return a == other }

// Genre is a style grouping.
type Genre struct {
	URI  URI
	Name string
}

func (g Genre) ItemURI() URI                   { return g.URI }
func (g Genre) ContentsEqual(other Genre) bool { return g == other }

// Playlist is an ordered, user-managed collection of audio.
type Playlist struct {
	URI  URI
	Name string
}

func (p Playlist) ItemURI() URI                      { return p.URI }
func (p Playlist) ContentsEqual(other Playlist) bool { return p == other }

// AlbumWithTracks pairs an album with its ordered tracks.
type AlbumWithTracks struct {
	Album  Album
	Tracks []Audio
}

// ArtistWorks groups everything attributable to an artist.
type ArtistWorks struct {
	Artist         Artist
	Albums         []Album
	AppearsInAlbum []Album
}

// GenreContent groups everything carrying a genre.
type GenreContent struct {
	Genre              Genre
	AppearsInAlbums    []Album
	AppearsInPlaylists []Playlist
	Audios             []Audio
}

// PlaylistWithTracks pairs a playlist with its ordered tracks.
type PlaylistWithTracks struct {
	Playlist Playlist
	Tracks   []Audio
}

// PlaylistMembership reports, for one playlist, whether a given audio item
// is a member of it.
type PlaylistMembership struct {
	Playlist Playlist
	HasAudio bool
}

// ActivityTab is one horizontally-scrolled row of the activity feed.
type ActivityTab struct {
	URI   URI
	Title string
	Items []Item
}

func (t ActivityTab) ItemURI() URI { return t.URI }
