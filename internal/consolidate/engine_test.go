package consolidate

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/canonical"
	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/staging"
)

type testEnv struct {
	engine *Engine
	staged *staging.SQLiteRepository
	canon  *canonical.SQLiteStore
	sdb    *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	require.NoError(t, db.MigrateSQLite(context.Background(), sdb))

	staged := staging.NewSQLiteRepository(sdb)
	canon := canonical.NewSQLiteStore(sdb)
	resolver := canonical.NewResolver([]string{"won", "lost"})
	return &testEnv{
		engine: NewEngine(staged, canon, resolver),
		staged: staged,
		canon:  canon,
		sdb:    sdb,
	}
}

func (e *testEnv) stage(t *testing.T, lead *model.StagedLead) *model.StagedLead {
	t.Helper()
	if lead.AccountID == "" {
		lead.AccountID = "acct-1"
	}
	if lead.ReceivedAt.IsZero() {
		lead.ReceivedAt = time.Date(2025, 8, 18, 8, 0, 15, 0, time.UTC)
	}
	stored, _, err := e.staged.Upsert(context.Background(), lead)
	require.NoError(t, err)
	return stored
}

func TestPromote(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	stored := env.stage(t, &model.StagedLead{
		Name:    "Maria Silva",
		Phone:   "5511999990000",
		Email:   "maria@example.com",
		Origin:  "Meta Ads",
		Payload: []byte(`{"campaign_name":"Winter Promo","ad_name":"Carousel A"}`),
	})

	res := env.engine.Consolidate(ctx, Request{
		StagedID:    stored.ID,
		Disposition: model.DispositionPromote,
		Status:      "novo-status",
	})
	require.Equal(t, model.OutcomeConsolidated, res.Outcome, res.Message)
	require.NotZero(t, res.CanonicalID)

	created, err := env.canon.Get(ctx, res.CanonicalID)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Maria Silva", created.Name)
	assert.Equal(t, "novo-status", created.Status)
	assert.Equal(t, "Meta Ads", created.Origin)
	assert.Equal(t, "Winter Promo", created.Campaign)
	assert.Equal(t, "Carousel A", created.Ad)

	after, err := env.staged.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StagedConsolidated, after.State)
}

func TestPromoteIncompleteLead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	t.Run("missing status", func(t *testing.T) {
		stored := env.stage(t, &model.StagedLead{Name: "Maria", Phone: "5511999990001", Origin: "Meta Ads"})
		res := env.engine.Consolidate(ctx, Request{StagedID: stored.ID, Disposition: model.DispositionPromote})
		assert.Equal(t, model.OutcomeIncompleteLead, res.Outcome)

		after, err := env.staged.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.True(t, after.State.Pending(), "staged lead stays pending")
	})

	t.Run("missing origin", func(t *testing.T) {
		stored := env.stage(t, &model.StagedLead{Name: "Maria", Phone: "5511999990002"})
		res := env.engine.Consolidate(ctx, Request{StagedID: stored.ID, Disposition: model.DispositionPromote, Status: "novo-status"})
		assert.Equal(t, model.OutcomeIncompleteLead, res.Outcome)
	})
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	existing := &model.CanonicalLead{
		AccountID: "acct-1",
		Name:      "Maria Silva",
		Phone:     "5511999990000",
		Status:    "negotiating",
		Origin:    "Facebook",
	}
	require.NoError(t, env.canon.Create(ctx, existing))

	stored := env.stage(t, &model.StagedLead{
		Name:    "Maria S",
		Phone:   "5511999990000",
		Email:   "maria@example.com",
		Origin:  "Google",
		Payload: []byte(`{"campaign_name":"Winter Promo"}`),
	})

	res := env.engine.Consolidate(ctx, Request{StagedID: stored.ID, Disposition: model.DispositionMerge})
	require.Equal(t, model.OutcomeConsolidated, res.Outcome, res.Message)
	assert.Equal(t, existing.ID, res.CanonicalID)

	merged, err := env.canon.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "negotiating", merged.Status, "merge never touches status")
	assert.Equal(t, "Maria Silva", merged.Name, "existing name wins")
	assert.Equal(t, "maria@example.com", merged.Email, "empty field filled")
	assert.Equal(t, "Winter Promo", merged.Campaign)

	after, err := env.staged.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StagedConsolidated, after.State)
}

func TestMergeNoCanonicalMatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	stored := env.stage(t, &model.StagedLead{Name: "Maria", Phone: "5511999990000", Origin: "Google"})

	res := env.engine.Consolidate(ctx, Request{StagedID: stored.ID, Disposition: model.DispositionMerge})
	assert.Equal(t, model.OutcomeNoCanonicalMatch, res.Outcome)

	after, err := env.staged.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, after.State.Pending())
}

func TestMergeTerminalStatusConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	existing := &model.CanonicalLead{AccountID: "acct-1", Name: "J. Santos", Phone: "5511999990000", Status: "won", Origin: "Facebook"}
	require.NoError(t, env.canon.Create(ctx, existing))

	stored := env.stage(t, &model.StagedLead{Name: "Joao Santos", Phone: "5511999990000", Origin: "Google"})

	res := env.engine.Consolidate(ctx, Request{StagedID: stored.ID, Disposition: model.DispositionMerge})
	require.Equal(t, model.OutcomeConflict, res.Outcome)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, "J. Santos", res.Conflict.Existing.Name)
	assert.Equal(t, "Joao Santos", res.Conflict.Incoming.Name)

	// Nothing written on either side.
	untouched, err := env.canon.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Facebook", untouched.Origin)
	after, err := env.staged.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, after.State.Pending())
}

func TestIgnoreReleasesPhoneSlot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	stored := env.stage(t, &model.StagedLead{Name: "Maria", Phone: "5511999990000", Origin: "Google"})

	res := env.engine.Consolidate(ctx, Request{StagedID: stored.ID, Disposition: model.DispositionIgnore})
	assert.Equal(t, model.OutcomeIgnored, res.Outcome)

	pending, err := env.staged.GetPending(ctx, "acct-1", "5511999990000")
	require.NoError(t, err)
	assert.Nil(t, pending, "ignored rows no longer hold the slot")

	// A new event for the same phone re-enters staging.
	again := env.stage(t, &model.StagedLead{Name: "Maria", Phone: "5511999990000", Origin: "Google"})
	assert.NotEqual(t, stored.ID, again.ID)
	assert.Equal(t, model.StagedNew, again.State)
}

func TestConsolidateUnknownStagedID(t *testing.T) {
	env := newTestEnv(t)

	res := env.engine.Consolidate(context.Background(), Request{StagedID: "missing", Disposition: model.DispositionPromote, Status: "x"})
	assert.Equal(t, model.OutcomeNotFound, res.Outcome)
}

func TestConsolidateInvalidDisposition(t *testing.T) {
	env := newTestEnv(t)

	res := env.engine.Consolidate(context.Background(), Request{StagedID: "whatever", Disposition: "explode"})
	assert.Equal(t, model.OutcomeInvalidPayload, res.Outcome)
}

func TestConsolidateBulkPartialFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	reqs := make([]Request, 0, 5)
	for i := 0; i < 5; i++ {
		lead := &model.StagedLead{
			Name:  fmt.Sprintf("Lead %d", i+1),
			Phone: fmt.Sprintf("551199999000%d", i+1),
		}
		if i != 2 {
			lead.Origin = "Meta Ads" // item 3 is missing its origin
		}
		stored := env.stage(t, lead)
		reqs = append(reqs, Request{StagedID: stored.ID, Disposition: model.DispositionPromote, Status: "novo-status"})
	}

	s := env.engine.ConsolidateBulk(ctx, reqs)
	assert.Equal(t, 4, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	require.Len(t, s.Items, 5)
	assert.Equal(t, model.OutcomeIncompleteLead, s.Items[2].Outcome)

	// The four good items committed canonical writes.
	for i, item := range s.Items {
		if i == 2 {
			continue
		}
		require.Equal(t, model.OutcomeConsolidated, item.Outcome, item.Message)
		created, err := env.canon.Get(ctx, item.CanonicalID)
		require.NoError(t, err)
		require.NotNil(t, created)
	}
}

func TestResolveConflictKeep(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	existing := &model.CanonicalLead{AccountID: "acct-1", Name: "", Phone: "5511999990000", Status: "won", Origin: "Facebook"}
	require.NoError(t, env.canon.Create(ctx, existing))

	stored := env.stage(t, &model.StagedLead{Name: "Joao Santos", Phone: "5511999990000", Origin: "Google", Email: "joao@example.com"})

	res := env.engine.ResolveConflict(ctx, stored.ID, true)
	require.Equal(t, model.OutcomeConsolidated, res.Outcome, res.Message)

	updated, err := env.canon.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Joao Santos", updated.Name)
	assert.Equal(t, "joao@example.com", updated.Email)
	assert.Equal(t, "Google", updated.Origin)
	assert.Equal(t, "won", updated.Status, "status still untouched")

	after, err := env.staged.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StagedConsolidated, after.State)
}

func TestResolveConflictDiscard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	existing := &model.CanonicalLead{AccountID: "acct-1", Name: "J. Santos", Phone: "5511999990000", Status: "won", Origin: "Facebook"}
	require.NoError(t, env.canon.Create(ctx, existing))

	stored := env.stage(t, &model.StagedLead{Name: "Joao Santos", Phone: "5511999990000", Origin: "Google"})

	res := env.engine.ResolveConflict(ctx, stored.ID, false)
	assert.Equal(t, model.OutcomeIgnored, res.Outcome)

	untouched, err := env.canon.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "J. Santos", untouched.Name)

	after, err := env.staged.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StagedIgnored, after.State)
}
