package player

import (
	"strconv"

	"github.com/fhs/gompd/v2/mpd"
)

// Playback states as reported in the status "state" attribute.
const (
	StatePlay  = "play"
	StatePause = "pause"
	StateStop  = "stop"
)

// State returns the playback state from a status map, defaulting to "stop"
// when the attribute is absent.
func State(status mpd.Attrs) string {
	if s, ok := status["state"]; ok && s != "" {
		return s
	}
	return StateStop
}

// SongPos returns the current playlist index from a status map. The second
// return is false when no song is selected.
func SongPos(status mpd.Attrs) (int, bool) {
	v, ok := status["song"]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// PlaylistLength returns the playlist length from a status map.
func PlaylistLength(status mpd.Attrs) int {
	n, err := strconv.Atoi(status["playlistlength"])
	if err != nil {
		return 0
	}
	return n
}

// PlaylistFiles reads the player's full playlist and returns the ordered
// track references.
func PlaylistFiles(c Client) ([]string, error) {
	entries, err := c.PlaylistInfo(-1, -1)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if f := entry["file"]; f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}
