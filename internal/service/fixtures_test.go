package service

import (
	"context"
	"sync"
	"time"

	"github.com/raulk/clock"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/triage"
)

var baseNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

const (
	companyAcme  = int64(5)
	companyOther = int64(6)

	adminID    = int64(1)
	samID      = int64(10)
	sueID      = int64(11)
	tamID      = int64(20)
	requestor  = int64(30)
	outsiderID = int64(31)

	ceActive  = int64(1)
	ceExpired = int64(2)
	ceSpare   = int64(3)
)

func intp(n int) *int { return &n }

func minutesAgo(m int) time.Time { return baseNow.Add(-time.Duration(m) * time.Minute) }

type fixture struct {
	store  *memStore
	clock  *clock.Mock
	engine *triage.Engine
	bus    events.Dispatcher
	events *eventLog
	users  map[int64]*domain.User
}

type eventLog struct {
	mu  sync.Mutex
	all []events.Event
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, e)
	return nil
}

func (l *eventLog) ofType(t events.EventType) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.all {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// newFixture seeds one company with four tickets:
//
//	101 unassigned, last activity 900 minutes ago
//	102 assigned to sue, 65 minutes
//	103 assigned to sam, In Progress, 130 minutes
//	104 closed, assigned to sue
func newFixture() *fixture {
	clk := clock.NewMock()
	clk.Set(baseNow)
	s := newMemStore()

	level := domain.SupportLevel{
		ID: 1, Name: "Standard", Level: intp(1),
		Critical: intp(60), CriticalColor: "Red",
		Escalate: intp(120), EscalateColor: "Yellow",
		Normal: intp(720), NormalColor: "White",
	}
	premium := domain.SupportLevel{ID: 2, Name: "Premium", Level: intp(2)}
	s.levels = []domain.SupportLevel{level, premium}
	entitlement := &domain.Entitlement{ID: 1, Name: "Gold", SupportLevels: []domain.SupportLevel{premium, level}}

	s.companies[companyAcme] = &domain.Company{ID: companyAcme, Name: "Acme Corp"}
	s.companies[companyOther] = &domain.Company{ID: companyOther, Name: "Other"}

	activeStart := baseNow.AddDate(0, 0, -10)
	expiredStart := baseNow.AddDate(0, -3, 0)
	s.entitlements[ceActive] = &domain.CompanyEntitlement{ID: ceActive, CompanyID: companyAcme, Entitlement: entitlement,
		SupportLevel: &level, Date: &activeStart, Duration: domain.DurationMonthly}
	s.entitlements[ceExpired] = &domain.CompanyEntitlement{ID: ceExpired, CompanyID: companyAcme, Entitlement: entitlement,
		SupportLevel: &level, Date: &expiredStart, Duration: domain.DurationMonthly}
	s.entitlements[ceSpare] = &domain.CompanyEntitlement{ID: ceSpare, CompanyID: companyAcme, SupportLevel: &level}

	users := map[int64]*domain.User{}
	for _, u := range []domain.User{
		{ID: adminID, Name: "root", Email: "root@desk.test", Type: domain.UserTypeAdmin},
		{ID: samID, Name: "sam", Email: "Sam@desk.test", Type: domain.UserTypeSupport},
		{ID: sueID, Name: "sue", Email: "sue@desk.test", Type: domain.UserTypeSupport},
		{ID: tamID, Name: "tess", Email: "tess@acme.test", Type: domain.UserTypeTAM, CompanyIDs: []int64{companyAcme}},
		{ID: requestor, Name: "rita", Email: "rita@acme.test", Type: domain.UserTypeUser, CompanyIDs: []int64{companyAcme}},
		{ID: outsiderID, Name: "olga", Email: "olga@other.test", Type: domain.UserTypeUser, CompanyIDs: []int64{companyOther}},
	} {
		users[u.ID] = s.addUser(u)
	}

	rita := requestor
	newTicket := func(id int64, status string, support ...int64) domain.Ticket {
		t := domain.Ticket{
			ID: id, Name: "AcmeCo-0000" + string(rune('0'+id-100)), Status: status,
			CompanyID: companyAcme, CompanyName: "Acme Corp", RequesterID: &rita,
			CompanyEntitlement: s.entitlements[ceActive],
		}
		for _, uid := range support {
			t.Support = append(t.Support, domain.Assignee{User: *users[uid], AssignedAt: minutesAgo(1000)})
		}
		return t
	}
	s.addTicket(newTicket(101, domain.StatusOpen))
	s.addTicket(newTicket(102, domain.StatusAssigned, sueID))
	s.addTicket(newTicket(103, domain.StatusInProgress, samID))
	s.addTicket(newTicket(104, domain.StatusClosed, sueID))

	for id, age := range map[int64]int{101: 900, 102: 65, 103: 130, 104: 5000} {
		s.addMessage(domain.Message{ID: id * 10, TicketID: id, Body: "hello", CreatedAt: minutesAgo(age)})
	}

	bus := events.NewInMemoryDispatcher(nil)
	log := &eventLog{}
	for _, et := range []events.EventType{
		events.EventTicketCreated, events.EventTicketStatusChanged,
		events.EventTicketAssigned, events.EventTicketMessageAdded,
	} {
		bus.Subscribe(et, log.record)
	}

	return &fixture{
		store:  s,
		clock:  clk,
		engine: triage.NewEngine(clk, triage.EscalationPolicy{}, time.UTC),
		bus:    bus,
		events: log,
		users:  users,
	}
}

func (f *fixture) viewer(id int64) *triage.Viewer {
	v, err := triage.ViewerFor(f.users[id])
	if err != nil {
		panic(err)
	}
	return v
}
