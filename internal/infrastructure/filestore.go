package infrastructure

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yourusername/ncm-fetch-go/internal/domain"
)

const partSuffix = ".part"

// Characters that are unsafe in filenames on at least one supported
// filesystem.
var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
)

// LocalFileStore keeps downloaded audio under a single directory.
// Writes go to a temporary .part file first and are renamed into place
// only once complete, so a visible file is always a whole file.
type LocalFileStore struct {
	baseDir string
}

func NewLocalFileStore(baseDir string) (*LocalFileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	return &LocalFileStore{baseDir: baseDir}, nil
}

// BaseDir returns the store's root directory.
func (s *LocalFileStore) BaseDir() string { return s.baseDir }

// FileName builds the canonical relative filename for a song. The id
// prefix keeps names unique even when two songs share artist and title.
func (s *LocalFileStore) FileName(id int64, artist, title, ext string) string {
	name := strings.TrimSpace(artist)
	if title = strings.TrimSpace(title); title != "" {
		if name != "" {
			name += " - "
		}
		name += title
	}
	prefix := strconv.FormatInt(id, 10)
	if name == "" {
		return prefix + "." + ext
	}
	return prefix + "-" + SanitizeFileName(name) + "." + ext
}

// SanitizeFileName replaces filesystem-unsafe characters and trims the
// name to a safe length.
func SanitizeFileName(name string) string {
	name = unsafeChars.Replace(name)
	name = strings.Trim(name, " .")
	runes := []rune(name)
	if len(runes) > 200 {
		runes = runes[:200]
		name = strings.TrimRight(string(runes), " .")
	}
	if name == "" {
		name = "untitled"
	}
	return name
}

// AbsPath resolves a relative filename against the store root.
func (s *LocalFileStore) AbsPath(rel string) string {
	return filepath.Join(s.baseDir, rel)
}

// Exists reports whether the file is present and its size.
func (s *LocalFileStore) Exists(rel string) (int64, bool) {
	info, err := os.Stat(s.AbsPath(rel))
	if err != nil || info.IsDir() {
		return 0, false
	}
	return info.Size(), true
}

// Save streams r into rel. When expected is positive a short read is
// treated as a partial write: the temp file is removed and
// ErrPartialWrite returned, leaving no trace on disk.
func (s *LocalFileStore) Save(r io.Reader, rel string, expected int64) (int64, error) {
	tmpPath := s.AbsPath(rel) + partSuffix
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	written, copyErr := io.Copy(f, r)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: %v", domain.ErrPartialWrite, copyErr)
	case closeErr != nil:
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: %v", domain.ErrPartialWrite, closeErr)
	case expected > 0 && written != expected:
		os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: got %d of %d bytes", domain.ErrPartialWrite, written, expected)
	}

	if err := os.Rename(tmpPath, s.AbsPath(rel)); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("finalize file: %w", err)
	}
	return written, nil
}

// Remove deletes a stored file. Removing an absent file is not an error.
func (s *LocalFileStore) Remove(rel string) error {
	err := os.Remove(s.AbsPath(rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ScannedFile is one audio file found by Scan.
type ScannedFile struct {
	RelPath string
	Size    int64
}

// Scan lists completed audio files under the store root, dropping any
// stale .part leftovers it finds along the way.
func (s *LocalFileStore) Scan() ([]ScannedFile, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("scan download dir: %w", err)
	}

	var files []ScannedFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, partSuffix) {
			os.Remove(filepath.Join(s.baseDir, name))
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".mp3" && ext != ".flac" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ScannedFile{RelPath: name, Size: info.Size()})
	}
	return files, nil
}
