package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collapsedContains matches when the expected fragment appears in the
// statement once runs of whitespace are folded to single spaces.
var collapsedContains = pgxmock.QueryMatcherFunc(func(expected, actual string) error {
	want := strings.Join(strings.Fields(expected), " ")
	got := strings.Join(strings.Fields(actual), " ")
	if !strings.Contains(got, want) {
		return fmt.Errorf("statement %q does not contain %q", got, want)
	}
	return nil
})

func newMockRepo(t *testing.T) (TicketRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(collapsedContains))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewTicketRepository(mock), mock
}

func noTickets() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id"})
}

func TestTicketListWithoutFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE 1=1 ORDER BY t.id`).WillReturnRows(noTickets())

	tickets, err := repo.List(context.Background(), TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketListSupportWorkingSet(t *testing.T) {
	repo, mock := newMockRepo(t)
	supportID := int64(10)

	mock.ExpectQuery(`WHERE 1=1
        AND (NOT EXISTS (SELECT 1 FROM ticket_supports s WHERE s.ticket_id = t.id)
        OR EXISTS (SELECT 1 FROM ticket_supports s WHERE s.ticket_id = t.id AND s.user_id = $1))
        AND LOWER(TRIM(t.status)) <> 'closed'
        ORDER BY t.id`).
		WithArgs(supportID).
		WillReturnRows(noTickets())

	_, err := repo.List(context.Background(), TicketFilter{SupportQueueOf: &supportID, ExcludeClosed: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketListAccountManagerScope(t *testing.T) {
	repo, mock := newMockRepo(t)
	tamID := int64(20)

	mock.ExpectQuery(`WHERE 1=1
        AND (EXISTS (SELECT 1 FROM ticket_tams tt WHERE tt.ticket_id = t.id AND tt.user_id = $1)
        OR EXISTS (SELECT 1 FROM company_users cu WHERE cu.company_id = t.company_id AND cu.user_id = $1))
        ORDER BY t.id`).
		WithArgs(tamID).
		WillReturnRows(noTickets())

	_, err := repo.List(context.Background(), TicketFilter{AccountManagerID: &tamID})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketListNumbersPlaceholdersInOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	requesterID, tamID, supportID := int64(30), int64(20), int64(10)

	mock.ExpectQuery(`WHERE 1=1 AND t.requester_id = $1 AND (EXISTS (SELECT 1 FROM ticket_tams tt WHERE tt.ticket_id = t.id AND tt.user_id = $2)`).
		WithArgs(requesterID, tamID, supportID).
		WillReturnRows(noTickets())

	_, err := repo.List(context.Background(), TicketFilter{
		RequesterID:      &requesterID,
		AccountManagerID: &tamID,
		SupportQueueOf:   &supportID,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketListPropagatesQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`FROM tickets t`).WillReturnError(boom)

	_, err := repo.List(context.Background(), TicketFilter{ExcludeClosed: true})
	assert.ErrorIs(t, err, boom)
}

func TestTicketGetByNamePicksNewest(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE t.name = $1 ORDER BY t.id DESC LIMIT 1`).
		WithArgs("AcmeCo-00002").
		WillReturnRows(noTickets())

	_, err := repo.GetByName(context.Background(), "AcmeCo-00002")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
