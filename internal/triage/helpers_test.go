package triage

import (
	"time"

	"github.com/raulk/clock"

	"github.com/spec-kit/support-desk/internal/domain"
)

var baseNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func intp(n int) *int { return &n }

func int64p(n int64) *int64 { return &n }

func mockClock(at time.Time) *clock.Mock {
	clk := clock.NewMock()
	clk.Set(at)
	return clk
}

func standardLevel() *domain.SupportLevel {
	return &domain.SupportLevel{
		ID:            1,
		Name:          "Standard",
		Critical:      intp(60),
		CriticalColor: ColorRed,
		Escalate:      intp(120),
		EscalateColor: ColorYellow,
		Normal:        intp(720),
		NormalColor:   ColorWhite,
	}
}

func entitled(level *domain.SupportLevel) *domain.CompanyEntitlement {
	return &domain.CompanyEntitlement{ID: 1, CompanyID: 5, SupportLevel: level}
}

func ticket(id int64, status string, level *domain.SupportLevel) domain.Ticket {
	return domain.Ticket{
		ID:                 id,
		Name:               "ACME-0000" + string(rune('0'+id%10)),
		Status:             status,
		CompanyID:          5,
		CompanyName:        "ACME",
		CompanyEntitlement: entitled(level),
	}
}

func assignee(userID int64, at time.Time) domain.Assignee {
	return domain.Assignee{
		User:       domain.User{ID: userID, Name: "support", Type: domain.UserTypeSupport},
		AssignedAt: at,
	}
}

func minutesAgo(m int) time.Time {
	return baseNow.Add(-time.Duration(m) * time.Minute)
}

func viewIDs(views []TicketView) []int64 {
	ids := make([]int64, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}
