package resolve

import "strings"

// locationNames maps numeric zone ids to arena names. Ids observed in
// live logs; the table is additive-only as new arenas ship.
var locationNames = map[int]string{
	980:  "Tol'viron",
	1552: "Ashamane's Fall",
	2759: "Cage of Carnage",
	1504: "Black Rook",
	2167: "Robodrome",
	2563: "Nokhudon",
	1911: "Mugambala",
	2373: "Empyrean Domain",
	1134: "Tiger's Peak",
	1505: "Nagrand",
	1825: "Hook Point",
	2509: "Maldraxxus",
	572:  "Ruins of Lordaeron",
	617:  "Dalaran Sewers",
	2547: "Enigma Crucible",
}

// LocationName returns the arena name for a zone id, or "" when the id
// is unknown.
func LocationName(id int) string {
	return locationNames[id]
}

// CategoryCompatible reports whether a session marker's declared
// bracket satisfies the metadata record's bracket. Solo Shuffle
// records match both the rated and unrated marker labels, and a
// Skirmish record matches any of the unranked bracket forms.
func CategoryCompatible(declared, marker string) bool {
	switch declared {
	case "Solo Shuffle":
		return marker == "Solo Shuffle" || marker == "Rated Solo Shuffle"
	case "Skirmish":
		return marker == "2v2" || marker == "3v3" || marker == "Skirmish"
	default:
		return marker == declared
	}
}

// LocationMatches reports whether two arena names refer to the same
// location. Matching is case-insensitive and accepts a substring in
// either direction, since the two sources abbreviate differently.
func LocationMatches(declared, marker string) bool {
	if declared == "" || marker == "" {
		return false
	}
	d := strings.ToLower(declared)
	if d == "undefined" || d == "unknown" {
		return false
	}
	m := strings.ToLower(marker)
	return d == m || strings.Contains(m, d) || strings.Contains(d, m)
}
