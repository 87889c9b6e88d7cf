package genclient

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/keithlinneman/charactergen/internal/xerrors"
)

var ErrNotDataURL = errors.New("genclient: not a base64 image data URL")

// DecodeDataURL returns the media type and bytes of a base64 data URL
func DecodeDataURL(u string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mediaType, ok = strings.CutSuffix(meta, ";base64")
	if !ok || !strings.HasPrefix(mediaType, "image/") {
		return "", nil, ErrNotDataURL
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, xerrors.Wrap(err, "decode image payload")
	}
	return mediaType, data, nil
}

// FileName is the download name used by the web UI
func FileName(now time.Time) string {
	return fmt.Sprintf("character-%d.png", now.UnixMilli())
}

// SaveImage writes the image in u to dir under FileName(now) and returns the path
func SaveImage(dir, u string, now time.Time) (string, error) {
	_, data, err := DecodeDataURL(u)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	p := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", xerrors.Wrapf(err, "write %s", p)
	}
	return p, nil
}
