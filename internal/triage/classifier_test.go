package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestClassifySeverityOrdering(t *testing.T) {
	level := standardLevel()
	tickets := []domain.Ticket{
		ticket(1, domain.StatusOpen, level),
		ticket(2, domain.StatusOpen, level),
		ticket(3, domain.StatusOpen, level),
		ticket(4, domain.StatusOpen, level),
	}
	activity := Activity{
		1: minutesAgo(150),
		2: minutesAgo(30),
		3: minutesAgo(80),
		4: minutesAgo(100),
	}
	engine := NewEngine(mockClock(baseNow), EscalationPolicy{}, time.UTC)

	board, err := engine.Classify(&Viewer{ID: 10, Role: RoleSupport}, tickets, activity)
	require.NoError(t, err)

	assert.Empty(t, board.Assigned)
	assert.Empty(t, board.Closed)
	require.Len(t, board.Open, 4)
	assert.Equal(t, []int64{3, 4, 1, 2}, viewIDs(board.Open))
	assert.Equal(t, ColorRed, board.Open[0].Severity)
	assert.Equal(t, ColorRed, board.Open[1].Severity)
	assert.Equal(t, ColorYellow, board.Open[2].Severity)
	assert.Equal(t, "", board.Open[3].Severity)
}

func TestClassifySupportBuckets(t *testing.T) {
	level := standardLevel()
	mine := ticket(1, domain.StatusInProgress, level)
	mine.Support = []domain.Assignee{assignee(10, minutesAgo(60))}
	theirs := ticket(2, domain.StatusAssigned, level)
	theirs.Support = []domain.Assignee{assignee(11, minutesAgo(60))}
	unassigned := ticket(3, "", level)
	closed := ticket(4, "closed", level)
	closed.Support = []domain.Assignee{assignee(11, minutesAgo(60))}

	engine := NewEngine(mockClock(baseNow), nil, nil)
	board, err := engine.Classify(&Viewer{ID: 10, Role: RoleSupport},
		[]domain.Ticket{mine, theirs, unassigned, closed}, Activity{})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, viewIDs(board.Assigned))
	assert.Equal(t, []int64{3}, viewIDs(board.Open))
	assert.Equal(t, []int64{4}, viewIDs(board.Closed))
	assert.Equal(t, domain.StatusOpen, board.Open[0].DisplayStatus)
	assert.Equal(t, ColorWhite, board.Closed[0].Severity)
}

func TestClassifyAccountManagerScope(t *testing.T) {
	level := standardLevel()
	ownCompany := ticket(1, domain.StatusOpen, level)
	ownCompany.Support = []domain.Assignee{assignee(11, minutesAgo(5))}
	waiting := ticket(2, domain.StatusOpen, level)
	managed := ticket(3, domain.StatusOpen, level)
	managed.CompanyID = 8
	managed.TAMs = []domain.User{{ID: 20, Type: domain.UserTypeTAM}}
	foreign := ticket(4, domain.StatusOpen, level)
	foreign.CompanyID = 9

	viewer := &Viewer{ID: 20, Role: RoleAccountManager, CompanyIDs: []int64{5}}
	engine := NewEngine(mockClock(baseNow), nil, nil)
	board, err := engine.Classify(viewer, []domain.Ticket{ownCompany, waiting, managed, foreign}, Activity{})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, viewIDs(board.Assigned))
	assert.Equal(t, []int64{2, 3}, viewIDs(board.Open))
	assert.Equal(t, domain.StatusAssigned, board.Assigned[0].DisplayStatus)
	assert.Equal(t, 3, board.Total())
}

func TestClassifyRequesterSeesOwnTickets(t *testing.T) {
	level := standardLevel()
	own := ticket(1, domain.StatusOpen, level)
	own.RequesterID = int64p(30)
	other := ticket(2, domain.StatusOpen, level)
	other.RequesterID = int64p(31)
	anonymous := ticket(3, domain.StatusOpen, level)

	engine := NewEngine(mockClock(baseNow), nil, nil)
	board, err := engine.Classify(&Viewer{ID: 30, Role: RoleRequester},
		[]domain.Ticket{own, other, anonymous}, Activity{})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, viewIDs(board.Open))
	assert.Equal(t, 1, board.Total())
}

func TestClassifyExpiredIsBlackAndFirst(t *testing.T) {
	level := standardLevel()
	fresh := ticket(1, domain.StatusOpen, level)
	lapsed := ticket(2, domain.StatusOpen, level)
	start := baseNow.AddDate(0, -2, 0)
	lapsed.CompanyEntitlement.Date = &start
	lapsed.CompanyEntitlement.Duration = domain.DurationMonthly
	closedLapsed := ticket(3, domain.StatusClosed, level)
	closedLapsed.CompanyEntitlement = lapsed.CompanyEntitlement

	engine := NewEngine(mockClock(baseNow), nil, nil)
	board, err := engine.Classify(&Viewer{ID: 10, Role: RoleSupport},
		[]domain.Ticket{fresh, lapsed, closedLapsed}, Activity{1: minutesAgo(65)})
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 1}, viewIDs(board.Open))
	assert.Equal(t, ColorBlack, board.Open[0].Severity)
	assert.True(t, board.Open[0].Expired)
	assert.Equal(t, ColorRed, board.Open[1].Severity)
	assert.Equal(t, ColorBlack, board.Closed[0].Severity)
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	level := standardLevel()
	tickets := []domain.Ticket{ticket(2, "", level), ticket(1, "", level)}
	engine := NewEngine(mockClock(baseNow), nil, nil)

	_, err := engine.Classify(&Viewer{ID: 10, Role: RoleSupport}, tickets, Activity{1: minutesAgo(90)})
	require.NoError(t, err)

	assert.Equal(t, int64(2), tickets[0].ID)
	assert.Equal(t, "", tickets[0].Status)
}

func TestClassifyRejectsMissingOrUnsupportedViewer(t *testing.T) {
	engine := NewEngine(mockClock(baseNow), nil, nil)

	_, err := engine.Classify(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoViewer)

	_, err = engine.Classify(&Viewer{ID: 1, Role: "admin"}, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedViewer)

	_, err = ViewerFor(&domain.User{ID: 1, Type: domain.UserTypeAdmin})
	assert.ErrorIs(t, err, ErrUnsupportedViewer)

	_, err = ViewerFor(nil)
	assert.ErrorIs(t, err, ErrNoViewer)
}

func TestClassifyFollowsClock(t *testing.T) {
	level := standardLevel()
	clk := mockClock(baseNow)
	engine := NewEngine(clk, nil, nil)
	tickets := []domain.Ticket{ticket(1, domain.StatusOpen, level)}
	activity := Activity{1: baseNow}
	viewer := &Viewer{ID: 10, Role: RoleSupport}

	board, err := engine.Classify(viewer, tickets, activity)
	require.NoError(t, err)
	assert.Equal(t, "", board.Open[0].Severity)

	clk.Add(61 * time.Minute)
	board, err = engine.Classify(viewer, tickets, activity)
	require.NoError(t, err)
	assert.Equal(t, ColorRed, board.Open[0].Severity)
}

func TestViewMatchesBoardProjection(t *testing.T) {
	level := standardLevel()
	tk := ticket(1, "", level)
	tk.Support = []domain.Assignee{assignee(10, minutesAgo(5))}
	engine := NewEngine(mockClock(baseNow), nil, nil)
	viewer := &Viewer{ID: 10, Role: RoleSupport}
	activity := Activity{1: minutesAgo(130)}

	board, err := engine.Classify(viewer, []domain.Ticket{tk}, activity)
	require.NoError(t, err)
	view := engine.View(viewer, &tk, activity)

	assert.Equal(t, board.Assigned[0], view)
	assert.Equal(t, ColorYellow, view.Severity)
	assert.Equal(t, domain.StatusAssigned, view.DisplayStatus)
	assert.Equal(t, "Standard", view.LevelName)
}

func TestDisplayStatus(t *testing.T) {
	withSupport := []domain.Assignee{assignee(1, baseNow)}
	assert.Equal(t, domain.StatusOpen, DisplayStatus(&domain.Ticket{}))
	assert.Equal(t, domain.StatusAssigned, DisplayStatus(&domain.Ticket{Support: withSupport}))
	assert.Equal(t, domain.StatusAssigned, DisplayStatus(&domain.Ticket{Status: "open", Support: withSupport}))
	assert.Equal(t, domain.StatusResolved, DisplayStatus(&domain.Ticket{Status: domain.StatusResolved, Support: withSupport}))
}

func TestLatestAssignee(t *testing.T) {
	tk := &domain.Ticket{Support: []domain.Assignee{
		assignee(4, minutesAgo(30)),
		assignee(2, minutesAgo(10)),
		assignee(3, minutesAgo(10)),
	}}
	got := LatestAssignee(tk)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.ID)
	assert.Nil(t, LatestAssignee(&domain.Ticket{}))
}

func TestLowestLevelName(t *testing.T) {
	tk := &domain.Ticket{CompanyEntitlement: &domain.CompanyEntitlement{
		Entitlement: &domain.Entitlement{SupportLevels: []domain.SupportLevel{
			{ID: 3, Name: "Gold", Level: intp(3)},
			{ID: 9, Name: "Unranked"},
			{ID: 2, Name: "Bronze-b", Level: intp(1)},
			{ID: 1, Name: "Bronze-a", Level: intp(1)},
		}},
	}}
	assert.Equal(t, "Bronze-a", LowestLevelName(tk))
	assert.Equal(t, "", LowestLevelName(&domain.Ticket{}))
}

func TestMissingAccountManagersIsIdempotent(t *testing.T) {
	tk := domain.Ticket{TAMs: []domain.User{{ID: 20, Type: domain.UserTypeTAM}}}
	company := []domain.User{
		{ID: 20, Type: domain.UserTypeTAM},
		{ID: 21, Type: domain.UserTypeTAM},
		{ID: 21, Type: domain.UserTypeTAM},
		{ID: 22, Type: domain.UserTypeUser},
	}

	missing := MissingAccountManagers(&tk, company)
	require.Len(t, missing, 1)
	assert.Equal(t, int64(21), missing[0].ID)

	tk.TAMs = append(tk.TAMs, missing...)
	assert.Empty(t, MissingAccountManagers(&tk, company))
}

func TestClassifyIsIdempotent(t *testing.T) {
	level := standardLevel()
	mine := ticket(1, domain.StatusInProgress, level)
	mine.Support = []domain.Assignee{assignee(10, minutesAgo(200))}
	waiting := ticket(2, " open ", level)
	blank := ticket(3, "", level)
	closed := ticket(4, "Closed", level)
	closed.Support = []domain.Assignee{assignee(10, minutesAgo(900))}
	tickets := []domain.Ticket{mine, waiting, blank, closed}
	activity := Activity{1: minutesAgo(90), 2: minutesAgo(150), 4: minutesAgo(3000)}

	engine := NewEngine(mockClock(baseNow), EscalationPolicy{}, time.UTC)
	viewer := &Viewer{ID: 10, Role: RoleSupport}

	first, err := engine.Classify(viewer, tickets, activity)
	require.NoError(t, err)
	second, err := engine.Classify(viewer, tickets, activity)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []domain.Ticket{mine, waiting, blank, closed}, tickets)
}
