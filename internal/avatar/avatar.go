// Package avatar produces avatar references for users: a Gravatar URL at
// signup and resized uploads kept in local or S3 storage.
package avatar

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrInvalidImage is returned when an upload cannot be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

// DefaultSize is the edge length of stored avatars.
const DefaultSize = 250

// GravatarURL returns the identicon Gravatar URL for email.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	q := url.Values{}
	q.Set("s", "250")
	q.Set("d", "identicon")
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?%s", sum, q.Encode())
}

// ObjectName returns a fresh storage name for a user's avatar.
func ObjectName(userID string) string {
	return fmt.Sprintf("%s_%s.jpg", userID, uuid.NewString())
}

// Storage keeps encoded avatars and returns the URL clients fetch them from.
type Storage interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	// Remove deletes an avatar previously returned by Save. URLs the storage
	// does not own, such as Gravatar links, are ignored.
	Remove(ctx context.Context, avatarURL string) error
}

// Resizer crops uploads to a square JPEG.
type Resizer struct {
	Size    int
	Quality int
}

// NewResizer returns a Resizer producing size x size images.
func NewResizer(size int) *Resizer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Resizer{Size: size, Quality: 90}
}

// Process decodes r, fills it to the configured square and encodes it as JPEG.
func (z *Resizer) Process(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	out := imaging.Fill(img, z.Size, z.Size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(z.Quality)); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
