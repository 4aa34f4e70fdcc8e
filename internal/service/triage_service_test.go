package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/cache"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/triage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func ids(views []triage.TicketView) []int64 {
	out := make([]int64, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestBoardForSupport(t *testing.T) {
	f := newFixture()
	svc := NewTriageService(TriageDependencies{Repos: f.store.repos(), Engine: f.engine, Metrics: observability.NewMetrics()})

	board, err := svc.Board(context.Background(), f.viewer(samID))
	require.NoError(t, err)

	assert.Equal(t, []int64{103}, ids(board.Assigned))
	assert.Equal(t, []int64{101}, ids(board.Open))
	assert.Equal(t, []int64{104}, ids(board.Closed))
	assert.Equal(t, "Yellow", board.Assigned[0].Severity)
	assert.Equal(t, "White", board.Open[0].Severity)
	assert.Equal(t, domain.StatusOpen, board.Open[0].DisplayStatus)
}

func TestBoardForAccountManager(t *testing.T) {
	f := newFixture()
	svc := NewTriageService(TriageDependencies{Repos: f.store.repos(), Engine: f.engine})

	board, err := svc.Board(context.Background(), f.viewer(tamID))
	require.NoError(t, err)

	assert.Equal(t, []int64{102, 103}, ids(board.Assigned))
	assert.Equal(t, []int64{101}, ids(board.Open))
	assert.Equal(t, []int64{104}, ids(board.Closed))
	assert.Equal(t, "Standard", board.Assigned[0].LowestLevelName)
}

func TestBoardForOutsiderIsEmpty(t *testing.T) {
	f := newFixture()
	svc := NewTriageService(TriageDependencies{Repos: f.store.repos(), Engine: f.engine})

	board, err := svc.Board(context.Background(), f.viewer(outsiderID))
	require.NoError(t, err)
	assert.Zero(t, board.Total())
	assert.NotNil(t, board.Open)
}

func TestBoardRequiresViewer(t *testing.T) {
	f := newFixture()
	svc := NewTriageService(TriageDependencies{Repos: f.store.repos(), Engine: f.engine})

	_, err := svc.Board(context.Background(), nil)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestAlarmForSupport(t *testing.T) {
	f := newFixture()
	svc := NewAlarmService(AlarmDependencies{Repos: f.store.repos(), Engine: f.engine})
	ctx := context.Background()

	raised, err := svc.HasAlarm(ctx, f.viewer(samID))
	require.NoError(t, err)
	assert.True(t, raised, "unassigned ticket 101 is 180 minutes past normal")

	f.store.addMessage(domain.Message{TicketID: 101, Body: "on it", CreatedAt: baseNow})
	raised, err = svc.HasAlarm(ctx, f.viewer(samID))
	require.NoError(t, err)
	assert.False(t, raised)

	f.clock.Add(14 * time.Hour)
	raised, err = svc.HasAlarm(ctx, f.viewer(samID))
	require.NoError(t, err)
	assert.True(t, raised)
}

func TestAlarmAnonymousNeverQueries(t *testing.T) {
	svc := NewAlarmService(AlarmDependencies{Repos: repository.Repositories{}, Engine: triage.NewEngine(nil, nil, nil)})

	var raised bool
	var err error
	assert.NotPanics(t, func() { raised, err = svc.HasAlarm(context.Background(), nil) })
	require.NoError(t, err)
	assert.False(t, raised)
}

func TestAlarmIgnoresOtherSupportUsersTickets(t *testing.T) {
	f := newFixture()
	f.store.addMessage(domain.Message{TicketID: 101, CreatedAt: baseNow})
	stale := f.store.ticket(102)
	stale.ID = 105
	f.store.addTicket(stale)
	f.store.addMessage(domain.Message{TicketID: 105, CreatedAt: minutesAgo(5000)})
	svc := NewAlarmService(AlarmDependencies{Repos: f.store.repos(), Engine: f.engine})

	raised, err := svc.HasAlarm(context.Background(), f.viewer(samID))
	require.NoError(t, err)
	assert.False(t, raised)

	raised, err = svc.HasAlarm(context.Background(), f.viewer(sueID))
	require.NoError(t, err)
	assert.True(t, raised)
}

func TestAlarmCacheAndInvalidation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := newFixture()
	metrics := observability.NewMetrics()
	svc := NewAlarmService(AlarmDependencies{
		Repos:    f.store.repos(),
		Engine:   f.engine,
		Cache:    cache.NewRedisAlarmCache(client, "alarm-test"),
		CacheTTL: time.Minute,
		Metrics:  metrics,
	})
	svc.RegisterHandlers(f.bus)
	ctx := context.Background()

	raised, err := svc.HasAlarm(ctx, f.viewer(samID))
	require.NoError(t, err)
	assert.True(t, raised)

	f.store.addMessage(domain.Message{TicketID: 101, CreatedAt: baseNow})
	raised, err = svc.HasAlarm(ctx, f.viewer(samID))
	require.NoError(t, err)
	assert.True(t, raised, "served from cache")

	require.NoError(t, f.bus.Publish(ctx, events.New(events.EventTicketMessageAdded, 101, events.Actor{}, baseNow, nil)))
	raised, err = svc.HasAlarm(ctx, f.viewer(samID))
	require.NoError(t, err)
	assert.False(t, raised)
}

func TestAlarmSurvivesCacheOutage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	f := newFixture()
	svc := NewAlarmService(AlarmDependencies{
		Repos:    f.store.repos(),
		Engine:   f.engine,
		Cache:    cache.NewRedisAlarmCache(client, ""),
		CacheTTL: time.Minute,
	})

	raised, err := svc.HasAlarm(context.Background(), f.viewer(samID))
	require.NoError(t, err)
	assert.True(t, raised)
}

// messagesWithHook runs onList once, before the first listing returns.
type messagesWithHook struct {
	repository.MessageRepository
	onList func()
}

func (m *messagesWithHook) ListNewestFirst(ctx context.Context, ticketIDs []int64) ([]domain.Message, error) {
	out, err := m.MessageRepository.ListNewestFirst(ctx, ticketIDs)
	if m.onList != nil {
		hook := m.onList
		m.onList = nil
		hook()
	}
	return out, err
}

func TestAlarmChangeDuringComputationIsNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := newFixture()
	ctx := context.Background()
	repos := f.store.repos()
	repos.Messages = &messagesWithHook{
		MessageRepository: repos.Messages,
		onList: func() {
			f.store.addMessage(domain.Message{TicketID: 101, CreatedAt: baseNow})
			require.NoError(t, f.bus.Publish(ctx, events.New(events.EventTicketMessageAdded, 101, events.Actor{}, baseNow, nil)))
		},
	}
	svc := NewAlarmService(AlarmDependencies{
		Repos:    repos,
		Engine:   f.engine,
		Cache:    cache.NewRedisAlarmCache(client, "alarm-race"),
		CacheTTL: time.Minute,
	})
	svc.RegisterHandlers(f.bus)

	raised, err := svc.HasAlarm(ctx, f.viewer(samID))
	require.NoError(t, err)
	assert.True(t, raised, "computed from the snapshot read before the message")

	raised, err = svc.HasAlarm(ctx, f.viewer(samID))
	require.NoError(t, err)
	assert.False(t, raised, "result from the invalidated generation must not be served")
}
