package tasks

import (
	"context"
	"testing"

	"github.com/desertthunder/plsync/internal/models"
	th "github.com/desertthunder/plsync/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		desired []string
		current []string
		want    Plan
	}{
		{"equal", []string{"A", "B"}, []string{"A", "B"}, Plan{Kind: PlanNoop}},
		{"both empty", nil, nil, Plan{Kind: PlanNoop}},
		{"append suffix", []string{"A", "B", "C"}, []string{"A", "B"}, Plan{Kind: PlanAppend, Tracks: []string{"C"}}},
		{"append to empty", []string{"A"}, nil, Plan{Kind: PlanAppend, Tracks: []string{"A"}}},
		{"reordered", []string{"A", "C", "B"}, []string{"A", "B"}, Plan{Kind: PlanReplace, Tracks: []string{"A", "C", "B"}}},
		{"removed", []string{"A"}, []string{"A", "B"}, Plan{Kind: PlanReplace, Tracks: []string{"A"}}},
		{"emptied", nil, []string{"A"}, Plan{Kind: PlanReplace}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.desired, tt.current)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, len(tt.want.Tracks), len(got.Tracks))
			if len(tt.want.Tracks) > 0 {
				assert.Equal(t, tt.want.Tracks, got.Tracks)
			}
		})
	}
}

func TestReconcile_DoesNotAliasDesired(t *testing.T) {
	desired := []string{"A", "B", "C"}
	plan := Reconcile(desired, []string{"A"})
	plan.Tracks[0] = "Z"
	assert.Equal(t, []string{"A", "B", "C"}, desired)
}

func TestPlan_String(t *testing.T) {
	assert.Equal(t, "Playlist is up to date", Plan{Kind: PlanNoop}.String())
	assert.Equal(t, "Appending 2 tracks", Plan{Kind: PlanAppend, Tracks: []string{"A", "B"}}.String())
	assert.Equal(t, "Replacing playlist contents with 1 tracks", Plan{Kind: PlanReplace, Tracks: []string{"A"}}.String())
	assert.Equal(t, "replace", PlanReplace.String())
}

func TestDesiredIDs(t *testing.T) {
	store := newStore(t)
	for _, m := range []models.MatchRecord{
		{SourceID: "s1", TargetID: "A"},
		{SourceID: "s2", TargetID: "B"},
		{SourceID: "s3", TargetID: "A"},
	} {
		require.NoError(t, store.Matches().Insert(m))
	}

	sources := []models.SourceTrack{
		{ID: "s2", Name: "two"},
		{ID: "", Name: "local file"},
		{ID: "s1", Name: "one"},
		{ID: "s4", Name: "unmatched"},
		{ID: "s3", Name: "one again"},
	}

	ids, dups, err := DesiredIDs(sources, store.Matches())
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, ids)
	require.Len(t, dups, 1)
	assert.Equal(t, "s3", dups[0].Track.ID)
	assert.Equal(t, "A", dups[0].TargetID)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	policy, _ := instantPolicy()

	t.Run("noop", func(t *testing.T) {
		target := th.NewFakeTarget()
		require.NoError(t, Apply(ctx, target, policy, "PL", Plan{Kind: PlanNoop}))
		assert.Empty(t, target.Cleared)
		assert.Empty(t, target.Appended)
	})

	t.Run("append", func(t *testing.T) {
		target := th.NewFakeTarget()
		target.Items["PL"] = []models.TargetTrack{{ID: "A"}, {ID: "B"}}
		require.NoError(t, Apply(ctx, target, policy, "PL", Plan{Kind: PlanAppend, Tracks: []string{"C"}}))
		assert.Empty(t, target.Cleared)
		assert.Equal(t, []string{"A", "B", "C"}, target.ItemIDs("PL"))
	})

	t.Run("replace", func(t *testing.T) {
		target := th.NewFakeTarget()
		target.Items["PL"] = []models.TargetTrack{{ID: "A"}, {ID: "B"}}
		require.NoError(t, Apply(ctx, target, policy, "PL", Plan{Kind: PlanReplace, Tracks: []string{"A", "C", "B"}}))
		assert.Equal(t, []string{"PL"}, target.Cleared)
		assert.Equal(t, []string{"A", "C", "B"}, target.ItemIDs("PL"))
	})

	t.Run("replace with nothing clears", func(t *testing.T) {
		target := th.NewFakeTarget()
		target.Items["PL"] = []models.TargetTrack{{ID: "A"}}
		require.NoError(t, Apply(ctx, target, policy, "PL", Plan{Kind: PlanReplace}))
		assert.Equal(t, []string{"PL"}, target.Cleared)
		assert.Empty(t, target.ItemIDs("PL"))
		assert.Empty(t, target.Appended)
	})

	t.Run("unknown kind", func(t *testing.T) {
		assert.Error(t, Apply(ctx, th.NewFakeTarget(), policy, "PL", Plan{Kind: PlanKind(9)}))
	})
}
