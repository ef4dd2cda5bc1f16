package mirror

import (
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// EntryInfo describes one queue entry for external consumers: whether it
// resolves to a local file, and the tag metadata read from it when it does.
type EntryInfo struct {
	Path   string `json:"path"`
	Remote bool   `json:"remote"`
	Exists bool   `json:"exists"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// EntryInfo resolves a track reference and, for local files, enriches it
// with embedded tag metadata. Tag read failures are not errors; the entry is
// simply returned without metadata.
func (s *Store) EntryInfo(ref string) EntryInfo {
	info := EntryInfo{Path: ref}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		info.Remote = true
		return info
	}

	abs, ok := s.Resolve(ref)
	if !ok {
		return info
	}

	f, err := os.Open(abs)
	if err != nil {
		return info
	}
	defer f.Close()
	info.Exists = true

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return info
	}
	info.Title = meta.Title()
	info.Artist = meta.Artist()
	info.Album = meta.Album()
	return info
}
