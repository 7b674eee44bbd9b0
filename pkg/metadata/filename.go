// Package metadata loads and indexes the external match records that
// drive resolution. Records arrive as CSV or XLSX index rows keyed by
// the recording filename; the filename itself encodes the player,
// bracket, and arena under a fixed grammar, and an optional sidecar
// JSON file carries the ground-truth elimination list.
package metadata

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/Phlares/arenaflow/internal/model"
)

// FilenameInfo is the part of a record recoverable from the recording
// filename alone.
type FilenameInfo struct {
	Start    time.Time
	Player   string
	Category string
	Location string
}

// ParseFilename decodes a recording filename of the form
//
//	2025-03-14_21-05-33_-_Player_-_3v3_Nagrand_(Win).mp4
//
// The bracket token is one of 2v2, 3v3, Skirmish or Solo_Shuffle; the
// remainder up to the parenthesized result is the arena name with
// underscores for spaces.
func ParseFilename(name string) (*FilenameInfo, bool) {
	base := name
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}

	parts := strings.Split(base, "_-_")
	if len(parts) < 3 {
		return nil, false
	}

	start, err := time.Parse("2006-01-02_15-04-05", parts[0])
	if err != nil {
		return nil, false
	}

	info := &FilenameInfo{Start: start, Player: parts[1]}

	tail := parts[2]
	switch {
	case strings.HasPrefix(tail, "3v3_"):
		info.Category = "3v3"
		tail = tail[4:]
	case strings.HasPrefix(tail, "2v2_"):
		info.Category = "2v2"
		tail = tail[4:]
	case strings.Contains(tail, "Skirmish"):
		info.Category = "Skirmish"
		tail = strings.Replace(tail, "Skirmish_", "", 1)
	case strings.Contains(tail, "Solo_Shuffle"):
		info.Category = "Solo Shuffle"
		tail = strings.Replace(tail, "Solo_Shuffle_", "", 1)
	default:
		info.Category = "Unknown"
	}

	if i := strings.Index(tail, "_("); i >= 0 {
		tail = tail[:i]
	}
	loc := strings.ReplaceAll(tail, "_", " ")
	// Apostrophes are stripped by the recorder.
	loc = strings.Replace(loc, "Tol viron", "Tol'viron", 1)
	info.Location = loc

	return info, true
}

// sidecar is the JSON layout of the per-recording ground-truth file.
type sidecar struct {
	ZoneID int `json:"zone_id"`
	Deaths []struct {
		Actor   string  `json:"actor"`
		OffsetS float64 `json:"offset_s"`
	} `json:"deaths"`
}

// LoadSidecar reads a ground-truth sidecar JSON and folds its zone id
// and elimination list into rec. A missing file is not an error; the
// record simply keeps an empty ground truth.
func LoadSidecar(path string, rec *model.MetadataRecord) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return err
	}

	if sc.ZoneID != 0 {
		rec.ZoneID = sc.ZoneID
	}
	for _, d := range sc.Deaths {
		rec.GroundTruth = append(rec.GroundTruth, model.GroundTruthEvent{
			ActorID: d.Actor,
			Offset:  time.Duration(d.OffsetS * float64(time.Second)),
		})
	}
	return nil
}

// SidecarPath returns the sidecar JSON path for a recording filename.
func SidecarPath(dir, filename string) string {
	base := filename
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if dir == "" {
		return base + ".json"
	}
	return dir + string(os.PathSeparator) + base + ".json"
}
