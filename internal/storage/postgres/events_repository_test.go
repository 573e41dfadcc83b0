package postgres

import (
	"context"
	"testing"

	"github.com/eventify-org/server/internal/api/pagination"
	"github.com/eventify-org/server/internal/auth"
	"github.com/eventify-org/server/internal/domain/events"
	"github.com/stretchr/testify/require"
)

func TestEventRepositoryCreateLinksOrganizer(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t)
	organizer := insertUser(t, ctx, pool, "Olive Organizer", auth.RoleOrganizer)

	event := insertEvent(t, ctx, pool, organizer.ID, 10, futureDate(7))
	require.Equal(t, 0, event.RegisteredCount)
	require.NotNil(t, event.Organizer)
	require.Equal(t, organizer.Name, event.Organizer.Name)
	require.Equal(t, futureDate(7), event.Date)

	reloaded, err := (&UserRepository{pool: pool}).GetByID(ctx, organizer.ID)
	require.NoError(t, err)
	require.Equal(t, []string{event.ID}, reloaded.EventsCreated)
}

func TestEventRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t)
	repo := &EventRepository{pool: pool}
	organizer := insertUser(t, ctx, pool, "Olive Organizer", auth.RoleOrganizer)
	event := insertEvent(t, ctx, pool, organizer.ID, 2, futureDate(3))

	title := "Renamed"
	updated, err := repo.Update(ctx, event.ID, events.Patch{Title: &title, Tags: []string{"a", "b"}, TagsSet: true})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Equal(t, []string{"a", "b"}, updated.Tags)
	require.Equal(t, event.Description, updated.Description)

	_, err = pool.Exec(ctx, `UPDATE events SET registered_count = 2 WHERE id = $1`, event.ID)
	require.NoError(t, err)
	capacity := 1
	_, err = repo.Update(ctx, event.ID, events.Patch{Capacity: &capacity})
	require.ErrorIs(t, err, events.ErrCapacityBelowRegistered)

	_, err = repo.Update(ctx, newID(t), events.Patch{Title: &title})
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestEventRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t)
	repo := &EventRepository{pool: pool}
	organizer := insertUser(t, ctx, pool, "Olive Organizer", auth.RoleOrganizer)

	past := insertEvent(t, ctx, pool, organizer.ID, 5, futureDate(-3))
	soon := insertEvent(t, ctx, pool, organizer.ID, 5, futureDate(1))
	later := insertEvent(t, ctx, pool, organizer.ID, 5, futureDate(10))

	upcoming, err := repo.List(ctx, events.Filters{When: events.WhenUpcoming, Today: futureDate(0)}, pagination.DefaultPage())
	require.NoError(t, err)
	require.Equal(t, 2, upcoming.Total)
	require.Equal(t, soon.ID, upcoming.Events[0].ID)
	require.Equal(t, later.ID, upcoming.Events[1].ID)

	pastOnly, err := repo.List(ctx, events.Filters{When: events.WhenPast, Today: futureDate(0)}, pagination.DefaultPage())
	require.NoError(t, err)
	require.Equal(t, 1, pastOnly.Total)
	require.Equal(t, past.ID, pastOnly.Events[0].ID)

	from, to := futureDate(0), futureDate(5)
	window, err := repo.List(ctx, events.Filters{DateFrom: &from, DateTo: &to}, pagination.DefaultPage())
	require.NoError(t, err)
	require.Equal(t, 1, window.Total)

	none, err := repo.List(ctx, events.Filters{Category: events.CategoryConcert}, pagination.DefaultPage())
	require.NoError(t, err)
	require.Zero(t, none.Total)
	require.Empty(t, none.Events)

	page, err := pagination.New(2, 2)
	require.NoError(t, err)
	second, err := repo.List(ctx, events.Filters{}, page)
	require.NoError(t, err)
	require.Equal(t, 3, second.Total)
	require.Len(t, second.Events, 1)
}

func TestEventRepositorySearchRanksTitleMatches(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t)
	repo := &EventRepository{pool: pool}
	organizer := insertUser(t, ctx, pool, "Olive Organizer", auth.RoleOrganizer)

	inDescription := insertEvent(t, ctx, pool, organizer.ID, 5, futureDate(2))
	inTitle := insertEvent(t, ctx, pool, organizer.ID, 5, futureDate(4))
	title := "Kubernetes workshop"
	_, err := repo.Update(ctx, inTitle.ID, events.Patch{Title: &title})
	require.NoError(t, err)
	description := "Hands-on kubernetes operators"
	_, err = repo.Update(ctx, inDescription.ID, events.Patch{Description: &description})
	require.NoError(t, err)

	found, err := repo.Search(ctx, "kubernetes", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, inTitle.ID, found[0].ID)

	missing, err := repo.Search(ctx, "haskell", 10)
	require.NoError(t, err)
	require.Empty(t, missing)
}
