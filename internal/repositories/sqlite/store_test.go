package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/repositories"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "lowping.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func seedEvents(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, ev := range []domain.Event{
		{ID: "late", Slug: "spring-cup", Name: "Spring Cup", Date: "2025-04-01", Time: "19:00", Price: 1500, Currency: "CAD", Game: domain.GameTeamfightTactics, FormType: domain.FormTypeTFT, CreatedAt: created, UpdatedAt: created},
		{ID: "early-b", Name: "Winter Night", Date: "2025-01-15", Time: "20:00", Game: domain.GameLeagueOfLegends, FormType: domain.FormTypeSummoner, CreatedAt: created, UpdatedAt: created},
		{ID: "early-a", Slug: "winter-cup", Name: "Winter Cup", Date: "2025-01-15", Time: "18:00", Game: domain.GameLeagueOfLegends, FormType: domain.FormTypeSummoner, CreatedAt: created, UpdatedAt: created},
	} {
		require.NoError(t, store.Events().Upsert(ctx, ev))
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lowping.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close(context.Background()))

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close(context.Background())
	require.NoError(t, second.Ping(context.Background()))
}

func TestEventRepositoryOrdersByDateThenTime(t *testing.T) {
	store := openTestStore(t)
	seedEvents(t, store)
	ctx := context.Background()

	ids, err := store.Events().ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"early-a", "early-b", "late"}, ids)

	list, err := store.Events().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(1500), list[2].Price)
	assert.Equal(t, domain.FormTypeTFT, list[2].FormType)
}

func TestEventRepositoryLookups(t *testing.T) {
	store := openTestStore(t)
	seedEvents(t, store)
	ctx := context.Background()

	ev, err := store.Events().FindBySlug(ctx, "spring-cup")
	require.NoError(t, err)
	assert.Equal(t, "late", ev.ID)

	_, err = store.Events().FindBySlug(ctx, "")
	assert.True(t, repositories.IsNotFound(err))

	_, err = store.Events().FindByID(ctx, "missing")
	assert.True(t, repositories.IsNotFound(err))
}

func TestEventRepositoryUpsertReplaces(t *testing.T) {
	store := openTestStore(t)
	seedEvents(t, store)
	ctx := context.Background()

	ev, err := store.Events().FindByID(ctx, "late")
	require.NoError(t, err)
	ev.Name = "Spring Cup Finals"
	ev.UpdatedAt = ev.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.Events().Upsert(ctx, ev))

	got, err := store.Events().FindByID(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, "Spring Cup Finals", got.Name)
	assert.True(t, got.UpdatedAt.Equal(ev.UpdatedAt))
}

func TestEventRepositoryDuplicateSlugConflicts(t *testing.T) {
	store := openTestStore(t)
	seedEvents(t, store)

	err := store.Events().Upsert(context.Background(), domain.Event{ID: "other", Slug: "spring-cup", Name: "Copy", Date: "2025-05-01"})
	assert.True(t, repositories.IsConflict(err), "got %v", err)
}

func TestRegistrationRepositoryLifecycle(t *testing.T) {
	store := openTestStore(t)
	seedEvents(t, store)
	ctx := context.Background()
	repo := store.Registrations()

	now := time.Date(2025, 3, 1, 15, 4, 5, 0, time.UTC)
	reg := domain.Registration{
		ID:        "01HZX",
		EventID:   "late",
		Name:      "Alex",
		Email:     "alex@example.com",
		RiotID:    "Alex#NA1",
		Fields:    map[string]string{"rank": "GOLD"},
		Status:    domain.RegistrationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Insert(ctx, reg))
	assert.True(t, repositories.IsConflict(repo.Insert(ctx, reg)))

	require.NoError(t, repo.AttachCheckoutSession(ctx, reg.ID, "cs_test_1", now.Add(time.Second)))

	paid := now.Add(time.Minute)
	require.NoError(t, repo.UpdateStatus(ctx, reg.ID, repositories.StatusUpdate{
		Status:          domain.RegistrationStatusPaid,
		PaymentIntentID: "pi_1",
		PaidAt:          &paid,
		UpdatedAt:       paid,
	}))

	got, err := repo.FindByCheckoutSession(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusPaid, got.Status)
	assert.Equal(t, "pi_1", got.PaymentIntentID)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(paid))
	assert.Equal(t, map[string]string{"rank": "GOLD"}, got.Fields)

	// a later status change without payment details keeps the earlier ones
	require.NoError(t, repo.UpdateStatus(ctx, reg.ID, repositories.StatusUpdate{
		Status:    domain.RegistrationStatusCancelled,
		UpdatedAt: paid.Add(time.Minute),
	}))
	got, err = repo.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", got.PaymentIntentID)
	assert.NotNil(t, got.PaidAt)

	list, err := repo.ListByEvent(ctx, "late")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegistrationRepositoryMissingRows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	repo := store.Registrations()

	_, err := repo.FindByID(ctx, "nope")
	assert.True(t, repositories.IsNotFound(err))
	_, err = repo.FindByCheckoutSession(ctx, "cs_missing")
	assert.True(t, repositories.IsNotFound(err))
	assert.True(t, repositories.IsNotFound(repo.AttachCheckoutSession(ctx, "nope", "cs", time.Now())))
}

func TestRepositoriesRespectCancelledContext(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Events().List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Registrations().Insert(ctx, domain.Registration{ID: "x"}), context.Canceled)
}
