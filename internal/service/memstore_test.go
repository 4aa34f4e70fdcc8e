package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres repositories.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	companies    map[int64]*domain.Company
	users        map[int64]*domain.User
	levels       []domain.SupportLevel
	entitlements map[int64]*domain.CompanyEntitlement
	tickets      map[int64]*domain.Ticket
	messages     []domain.Message
	history      []domain.HistoryEntry
	txCount      int
}

func newMemStore() *memStore {
	return &memStore{
		nextID:       1000,
		companies:    map[int64]*domain.Company{},
		users:        map[int64]*domain.User{},
		entitlements: map[int64]*domain.CompanyEntitlement{},
		tickets:      map[int64]*domain.Ticket{},
	}
}

func (s *memStore) repos() repository.Repositories {
	return repository.Repositories{
		Tickets:   memTickets{s},
		Messages:  memMessages{s},
		Companies: memCompanies{s},
		Users:     memUsers{s},
		Catalog:   memCatalog{s},
		History:   memHistory{s},
	}
}

func (s *memStore) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	s.txCount++
	s.mu.Unlock()
	return fn(s.repos())
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(u domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.users[u.ID] = &cp
	return &cp
}

func (s *memStore) addTicket(t domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyTicket(&t)
	s.tickets[t.ID] = &cp
}

func (s *memStore) addMessage(m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

func (s *memStore) ticket(id int64) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTicket(s.tickets[id])
}

func copyTicket(t *domain.Ticket) domain.Ticket {
	cp := *t
	cp.Support = append([]domain.Assignee(nil), t.Support...)
	cp.TAMs = append([]domain.User(nil), t.TAMs...)
	return cp
}

type memTickets struct{ s *memStore }

func (r memTickets) List(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := lo.Keys(r.s.tickets)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []domain.Ticket
	for _, id := range ids {
		t := r.s.tickets[id]
		if f.RequesterID != nil && (t.RequesterID == nil || *t.RequesterID != *f.RequesterID) {
			continue
		}
		if f.AccountManagerID != nil {
			direct := lo.ContainsBy(t.TAMs, func(u domain.User) bool { return u.ID == *f.AccountManagerID })
			member := false
			if u := r.s.users[*f.AccountManagerID]; u != nil {
				member = lo.Contains(u.CompanyIDs, t.CompanyID)
			}
			if !direct && !member {
				continue
			}
		}
		if f.SupportQueueOf != nil && len(t.Support) > 0 &&
			!lo.ContainsBy(t.Support, func(a domain.Assignee) bool { return a.User.ID == *f.SupportQueueOf }) {
			continue
		}
		if f.ExcludeClosed && strings.EqualFold(strings.TrimSpace(t.Status), domain.StatusClosed) {
			continue
		}
		out = append(out, copyTicket(t))
	}
	return out, nil
}

func (r memTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := copyTicket(t)
	return &cp, nil
}

func (r memTickets) GetByName(_ context.Context, name string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *domain.Ticket
	for _, t := range r.s.tickets {
		if t.Name == name && (found == nil || t.ID > found.ID) {
			found = t
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	cp := copyTicket(found)
	return &cp, nil
}

func (r memTickets) Create(_ context.Context, t *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt = time.Now()
	cp := copyTicket(t)
	r.s.tickets[t.ID] = &cp
	return nil
}

func (r memTickets) UpdateStatus(_ context.Context, id int64, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status = status
	return nil
}

func (r memTickets) AddSupport(_ context.Context, ticketID, userID int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.s.tickets[ticketID]
	if lo.ContainsBy(t.Support, func(a domain.Assignee) bool { return a.User.ID == userID }) {
		return false, nil
	}
	t.Support = append(t.Support, domain.Assignee{User: *r.s.users[userID], AssignedAt: at})
	return true, nil
}

func (r memTickets) AddTAMs(_ context.Context, ticketID int64, userIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.s.tickets[ticketID]
	for _, id := range userIDs {
		if !lo.ContainsBy(t.TAMs, func(u domain.User) bool { return u.ID == id }) {
			t.TAMs = append(t.TAMs, *r.s.users[id])
		}
	}
	return nil
}

func (r memTickets) CountByCompanyEntitlement(_ context.Context, ceID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.tickets {
		if t.CompanyEntitlement != nil && t.CompanyEntitlement.ID == ceID {
			n++
		}
	}
	return n, nil
}

type memMessages struct{ s *memStore }

func (r memMessages) Create(_ context.Context, m *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.id()
	r.s.messages = append(r.s.messages, *m)
	return nil
}

func (r memMessages) ListNewestFirst(_ context.Context, ticketIDs []int64) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := lo.Filter(r.s.messages, func(m domain.Message, _ int) bool { return lo.Contains(ticketIDs, m.TicketID) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memCompanies struct{ s *memStore }

func (r memCompanies) GetByID(_ context.Context, id int64) (*domain.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (r memCompanies) current(companyID int64) int64 {
	if seq := r.s.companies[companyID].TicketSequence; seq != nil {
		return *seq
	}
	var n int64
	for _, t := range r.s.tickets {
		if t.CompanyID == companyID {
			n++
		}
	}
	return n
}

func (r memCompanies) NextTicketSequence(_ context.Context, companyID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	next := r.current(companyID) + 1
	r.s.companies[companyID].TicketSequence = &next
	return next, nil
}

func (r memCompanies) CurrentTicketSequence(_ context.Context, companyID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.current(companyID), nil
}

type memUsers struct{ s *memStore }

func (r memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memUsers) ListByIDs(_ context.Context, ids []int64) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r memUsers) CompanyTAMs(_ context.Context, companyID int64) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, u := range r.s.users {
		if u.Type == domain.UserTypeTAM && lo.Contains(u.CompanyIDs, companyID) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memCatalog struct{ s *memStore }

func (r memCatalog) ListSupportLevels(context.Context) ([]domain.SupportLevel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.SupportLevel(nil), r.s.levels...), nil
}

func (r memCatalog) GetCompanyEntitlement(_ context.Context, id int64) (*domain.CompanyEntitlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ce, ok := r.s.entitlements[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ce, nil
}

func (r memCatalog) ListCompanyEntitlements(_ context.Context, companyID int64) ([]domain.CompanyEntitlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.CompanyEntitlement
	for _, ce := range r.s.entitlements {
		if ce.CompanyID == companyID {
			out = append(out, *ce)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memCatalog) DeleteCompanyEntitlement(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.entitlements[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.entitlements, id)
	return nil
}

type memHistory struct{ s *memStore }

func (r memHistory) Create(_ context.Context, e *domain.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.id()
	r.s.history = append(r.s.history, *e)
	return nil
}

func (r memHistory) ListByTicket(_ context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lo.Filter(r.s.history, func(e domain.HistoryEntry, _ int) bool { return e.TicketID == ticketID }), nil
}
