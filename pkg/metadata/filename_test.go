package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Phlares/arenaflow/internal/model"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		player   string
		category string
		location string
		start    time.Time
	}{
		{
			"3v3",
			"2025-03-14_21-05-33_-_Kaelys_-_3v3_Nagrand_(Win).mp4",
			"Kaelys", "3v3", "Nagrand",
			time.Date(2025, 3, 14, 21, 5, 33, 0, time.UTC),
		},
		{
			"2v2 multiword arena",
			"2025-03-14_21-05-33_-_Kaelys_-_2v2_Ruins_of_Lordaeron_(Loss).mp4",
			"Kaelys", "2v2", "Ruins of Lordaeron",
			time.Date(2025, 3, 14, 21, 5, 33, 0, time.UTC),
		},
		{
			"solo shuffle",
			"2025-05-01_18-30-00_-_Velra_-_Solo_Shuffle_Empyrean_Domain_(Win).mp4",
			"Velra", "Solo Shuffle", "Empyrean Domain",
			time.Date(2025, 5, 1, 18, 30, 0, 0, time.UTC),
		},
		{
			"skirmish",
			"2025-05-01_18-30-00_-_Velra_-_Skirmish_Robodrome_(Loss).mp4",
			"Velra", "Skirmish", "Robodrome",
			time.Date(2025, 5, 1, 18, 30, 0, 0, time.UTC),
		},
		{
			"apostrophe restored",
			"2025-05-01_18-30-00_-_Velra_-_3v3_Tol_viron_(Win).mp4",
			"Velra", "3v3", "Tol'viron",
			time.Date(2025, 5, 1, 18, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		info, ok := ParseFilename(tt.input)
		if !ok {
			t.Errorf("%s: ParseFilename(%q) failed", tt.name, tt.input)
			continue
		}
		if info.Player != tt.player {
			t.Errorf("%s: Player = %q, want %q", tt.name, info.Player, tt.player)
		}
		if info.Category != tt.category {
			t.Errorf("%s: Category = %q, want %q", tt.name, info.Category, tt.category)
		}
		if info.Location != tt.location {
			t.Errorf("%s: Location = %q, want %q", tt.name, info.Location, tt.location)
		}
		if !info.Start.Equal(tt.start) {
			t.Errorf("%s: Start = %v, want %v", tt.name, info.Start, tt.start)
		}
	}
}

func TestParseFilename_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"random.mp4",
		"2025-03-14_-_Kaelys_-_3v3_Nagrand.mp4", // timestamp missing its time part
		"notadate_-_Kaelys_-_3v3_Nagrand.mp4",
	}
	for _, input := range inputs {
		if _, ok := ParseFilename(input); ok {
			t.Errorf("ParseFilename(%q) succeeded, want failure", input)
		}
	}
}

func TestLoadSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "match.json")
	content := `{"zone_id": 1505, "deaths": [{"actor": "Velra", "offset_s": 95.5}, {"actor": "Deyna", "offset_s": 170}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &model.MetadataRecord{Filename: "match.mp4"}
	if err := LoadSidecar(path, rec); err != nil {
		t.Fatalf("LoadSidecar failed: %v", err)
	}

	if rec.ZoneID != 1505 {
		t.Errorf("ZoneID = %d, want 1505", rec.ZoneID)
	}
	if len(rec.GroundTruth) != 2 {
		t.Fatalf("got %d ground-truth events, want 2", len(rec.GroundTruth))
	}
	if rec.GroundTruth[0].ActorID != "Velra" {
		t.Errorf("ActorID = %q, want Velra", rec.GroundTruth[0].ActorID)
	}
	want := time.Duration(95.5 * float64(time.Second))
	if rec.GroundTruth[0].Offset != want {
		t.Errorf("Offset = %v, want %v", rec.GroundTruth[0].Offset, want)
	}
}

func TestLoadSidecar_Missing(t *testing.T) {
	rec := &model.MetadataRecord{Filename: "match.mp4"}
	if err := LoadSidecar(filepath.Join(t.TempDir(), "absent.json"), rec); err != nil {
		t.Errorf("missing sidecar should not be an error, got %v", err)
	}
	if len(rec.GroundTruth) != 0 {
		t.Error("missing sidecar must leave ground truth empty")
	}
}

func TestSidecarPath(t *testing.T) {
	got := SidecarPath(filepath.Join("gt"), "2025-03-14_21-05-33_-_K_-_3v3_Nagrand_(Win).mp4")
	want := filepath.Join("gt", "2025-03-14_21-05-33_-_K_-_3v3_Nagrand_(Win).json")
	if got != want {
		t.Errorf("SidecarPath = %q, want %q", got, want)
	}
}
