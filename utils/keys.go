package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

// IsImageFile checks the extension of an uploaded screenshot.
func IsImageFile(filename string) bool {
	return imageExts[strings.ToLower(filepath.Ext(filename))]
}

// ProofKey names a screenshot object: <user>/<unix millis>_<slugged name><ext>.
func ProofKey(userID, filename string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "screenshot"
	}
	return fmt.Sprintf("%s/%d_%s%s", userID, at.UnixMilli(), base, ext)
}
