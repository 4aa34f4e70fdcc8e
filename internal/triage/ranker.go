package triage

import (
	"sort"
	"time"
)

// Rank orders views in place: by severity (Black, Red, Yellow, White, then
// anything else), then most recent activity first with no activity last,
// then ID ascending with unsaved tickets last.
func Rank(views []TicketView) {
	sort.SliceStable(views, func(i, j int) bool {
		return Compare(&views[i], &views[j]) < 0
	})
}

// Compare is the total order used by Rank.
func Compare(a, b *TicketView) int {
	if ra, rb := severityRank(a.Severity), severityRank(b.Severity); ra != rb {
		return cmpInt(ra, rb)
	}
	if c := compareActivity(a.LastActivity, b.LastActivity); c != 0 {
		return c
	}
	return compareID(a.ID, b.ID)
}

func compareActivity(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.After(*b):
		return -1
	case b.After(*a):
		return 1
	default:
		return 0
	}
}

func compareID(a, b int64) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return 1
	case b == 0:
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	return 1
}
