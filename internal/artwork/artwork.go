// Package artwork resolves cover images for local tracks and serves them
// as cached JPEG thumbnails. Embedded pictures take priority over folder
// images; generated thumbnails are kept on disk keyed by track and size.
package artwork

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	"image/jpeg"   // JPEG decoder and thumbnail encoder
	_ "image/png"  // PNG decoder
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder
)

// ErrNoArtwork is returned when no artwork is found.
var ErrNoArtwork = errors.New("no artwork found")

// Size represents common thumbnail dimensions.
type Size int

const (
	// SizeSmall is 150x150 pixels - for list views
	SizeSmall Size = 150
	// SizeMedium is 300x300 pixels - for grid views
	SizeMedium Size = 300
	// SizeLarge is 500x500 pixels - for detail views
	SizeLarge Size = 500
)

// Provider fetches raw artwork bytes for a track path.
type Provider interface {
	// ReadPicture retrieves embedded artwork from audio file tags.
	ReadPicture(uri string) ([]byte, error)
	// AlbumArt retrieves folder-based album art (cover.jpg, folder.jpg, etc).
	AlbumArt(uri string) ([]byte, error)
}

// Service resolves and caches thumbnails.
type Service struct {
	provider Provider
	cacheDir string
}

// NewService creates an artwork service writing thumbnails under cacheDir.
func NewService(provider Provider, cacheDir string) *Service {
	return &Service{provider: provider, cacheDir: cacheDir}
}

// Thumbnail returns the path of a cached thumbnail for a track, generating
// it on first use. Returns ErrNoArtwork when the track has neither embedded
// nor folder art.
func (s *Service) Thumbnail(trackPath string, size Size) (string, error) {
	thumbDir := filepath.Join(s.cacheDir, "thumbs")
	if err := os.MkdirAll(thumbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	sum := md5.Sum([]byte(trackPath))
	thumbPath := filepath.Join(thumbDir, fmt.Sprintf("%s_%d.jpg", hex.EncodeToString(sum[:]), size))
	if _, err := os.Stat(thumbPath); err == nil {
		return thumbPath, nil
	}

	raw, err := s.fetch(trackPath)
	if err != nil {
		return "", err
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode artwork: %w", err)
	}

	log.Debug().
		Str("track", trackPath).
		Str("format", format).
		Int("size", int(size)).
		Msg("Generating thumbnail")

	thumb := resize(img, int(size))

	out, err := os.Create(thumbPath)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		os.Remove(thumbPath)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return thumbPath, nil
}

// fetch tries embedded art first, then folder art.
func (s *Service) fetch(trackPath string) ([]byte, error) {
	if data, err := s.provider.ReadPicture(trackPath); err == nil && len(data) > 0 {
		return data, nil
	}
	if data, err := s.provider.AlbumArt(trackPath); err == nil && len(data) > 0 {
		return data, nil
	}
	return nil, ErrNoArtwork
}

// resize scales an image to fit within maxSize while maintaining aspect
// ratio, using CatmullRom for quality.
func resize(src image.Image, maxSize int) image.Image {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	if srcW <= maxSize && srcH <= maxSize {
		return src
	}

	var newW, newH int
	if srcW > srcH {
		newW = maxSize
		newH = int(float64(srcH) * float64(maxSize) / float64(srcW))
	} else {
		newH = maxSize
		newW = int(float64(srcW) * float64(maxSize) / float64(srcH))
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
