package resolve

import (
	"sort"

	"github.com/Phlares/arenaflow/internal/model"
)

// BuildCandidates pairs start markers with end markers into candidate
// intervals. Markers are sorted by timestamp first; the sort is stable
// so two starts sharing an identical timestamp keep their scan order.
// Each start pairs with the earliest following end marker, unless
// another start intervenes first, in which case the candidate is left
// open-ended.
func BuildCandidates(markers []*model.SessionMarker) []*model.Candidate {
	sorted := make([]*model.SessionMarker, len(markers))
	copy(sorted, markers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var cands []*model.Candidate
	for i, m := range sorted {
		if m.Marker != model.MarkerStart {
			continue
		}
		c := &model.Candidate{Start: m}
		for _, next := range sorted[i+1:] {
			if next.Marker == model.MarkerStart {
				break
			}
			if next.Timestamp.After(m.Timestamp) {
				c.End = next
				break
			}
		}
		cands = append(cands, c)
	}
	return cands
}
