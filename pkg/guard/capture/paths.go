package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// recoveredMarker is appended to the filename stem of artifacts produced by
// deletion-triggered recovery.
const recoveredMarker = "_RECOVERED"

// stamp renders the destination timestamp with millisecond precision,
// e.g. 20260823_154233_017.
func stamp(t time.Time) string {
	return fmt.Sprintf("%s_%03d", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}

// stampName inserts the timestamp (and the recovered marker, if set) between
// the filename stem and its extension.
func stampName(name string, t time.Time, recovered bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if recovered {
		return stem + "_" + stamp(t) + recoveredMarker + ext
	}
	return stem + "_" + stamp(t) + ext
}

// destinationPath mirrors the source's directory structure relative to
// watchRoot under backupRoot and stamps the filename. If the destination
// already exists (two captures in the same millisecond), a random token is
// inserted to disambiguate.
func destinationPath(watchRoot, backupRoot, sourcePath string, t time.Time, recovered bool) string {
	rel, err := filepath.Rel(watchRoot, sourcePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(sourcePath)
	}

	dest := filepath.Join(backupRoot, filepath.Dir(rel), stampName(filepath.Base(rel), t, recovered))
	if _, err := os.Stat(dest); err == nil {
		dest = withToken(dest)
	}
	return dest
}

// withToken inserts a short random token before the extension.
func withToken(path string) string {
	ext := filepath.Ext(path)
	token := uuid.New().String()[:8]
	return strings.TrimSuffix(path, ext) + "_" + token + ext
}
