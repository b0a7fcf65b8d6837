package staging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/model"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	sdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	require.NoError(t, db.MigrateSQLite(context.Background(), sdb))
	return NewSQLiteRepository(sdb)
}

func stagedFixture(phone string) *model.StagedLead {
	return &model.StagedLead{
		AccountID:  "acct-1",
		Name:       "Maria Da Silva",
		Phone:      phone,
		Email:      "maria@example.com",
		Origin:     "Meta Ads",
		ReceivedAt: time.Date(2025, 8, 18, 8, 0, 15, 0, time.UTC),
		Payload:    []byte(`{"phone":"11 99999-0000"}`),
	}
}

func TestUpsert_NewThenRefresh(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	first, refreshed, err := repo.Upsert(ctx, stagedFixture("5511999990000"))
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, model.StagedNew, first.State)

	// Second event for the same phone before disposition.
	second := stagedFixture("5511999990000")
	second.Name = "Maria D. Silva"
	second.ReceivedAt = second.ReceivedAt.Add(time.Hour)
	stored, refreshed, err := repo.Upsert(ctx, second)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, first.ID, stored.ID, "must update in place, not duplicate")
	assert.Equal(t, model.StagedUpdated, stored.State)
	assert.Equal(t, "Maria D. Silva", stored.Name)

	// Exactly one pending row for the key.
	leads, err := repo.List(ctx, "acct-1", Filter{States: []model.StagedState{model.StagedNew, model.StagedUpdated}})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestUpsert_TerminalRowReleasesPhone(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	first, _, err := repo.Upsert(ctx, stagedFixture("5511999990000"))
	require.NoError(t, err)
	require.NoError(t, repo.SetState(ctx, first.ID, model.StagedIgnored))

	// A new event for the same phone re-enters staging as a fresh row.
	second, refreshed, err := repo.Upsert(ctx, stagedFixture("5511999990000"))
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, model.StagedNew, second.State)
}

func TestUpsert_EmptyPhoneAlwaysInserts(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	a, _, err := repo.Upsert(ctx, stagedFixture(""))
	require.NoError(t, err)
	b, refreshed, err := repo.Upsert(ctx, stagedFixture(""))
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.NotEqual(t, a.ID, b.ID, "empty phones never collide")
}

func TestGetPending(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, _, err := repo.Upsert(ctx, stagedFixture("5511999990000"))
	require.NoError(t, err)

	got, err := repo.GetPending(ctx, "acct-1", "5511999990000")
	require.NoError(t, err)
	require.NotNil(t, got)

	// Other account, other phone and empty phone all miss.
	for _, tc := range []struct{ acct, phone string }{
		{"acct-2", "5511999990000"},
		{"acct-1", "5511000000000"},
		{"acct-1", ""},
	} {
		got, err := repo.GetPending(ctx, tc.acct, tc.phone)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestGetPending_IgnoredExcluded(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	lead, _, err := repo.Upsert(ctx, stagedFixture("5511999990000"))
	require.NoError(t, err)
	require.NoError(t, repo.SetState(ctx, lead.ID, model.StagedIgnored))

	got, err := repo.GetPending(ctx, "acct-1", "5511999990000")
	require.NoError(t, err)
	assert.Nil(t, got, "ignored rows must not short-circuit new events")
}

func TestList_Filters(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	early := stagedFixture("5511999990000")
	early.Name = "Ana Clara"
	early.ReceivedAt = time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	late := stagedFixture("5521988887777")
	late.ReceivedAt = time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)

	_, _, err := repo.Upsert(ctx, early)
	require.NoError(t, err)
	_, _, err = repo.Upsert(ctx, late)
	require.NoError(t, err)

	all, err := repo.List(ctx, "acct-1", Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "5521988887777", all[0].Phone, "newest first")

	byName, err := repo.List(ctx, "acct-1", Filter{Search: "ana"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Ana Clara", byName[0].Name)

	byDate, err := repo.List(ctx, "acct-1", Filter{From: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "5521988887777", byDate[0].Phone)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	lead, _, err := repo.Upsert(ctx, stagedFixture("5511999990000"))
	require.NoError(t, err)

	lead.Name = "Maria Santos"
	lead.Email = "santos@example.com"
	require.NoError(t, repo.Update(ctx, lead))

	got, err := repo.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria Santos", got.Name)

	require.NoError(t, repo.Delete(ctx, lead.ID))
	got, err = repo.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetState_NotFound(t *testing.T) {
	repo := newSQLiteRepo(t)
	err := repo.SetState(context.Background(), "no-such-id", model.StagedIgnored)
	assert.Error(t, err)
}
