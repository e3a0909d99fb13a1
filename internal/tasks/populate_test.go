package tasks

import (
	"fmt"
	"testing"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulate_OneToOne(t *testing.T) {
	store := newStore(t)
	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}

	var (
		sources []models.SourceTrack
		targets []models.TargetTrack
	)
	for i, name := range names {
		sources = append(sources, sourceTrack(fmt.Sprintf("s%d", i), name, "Artist", "Album", i+1))
	}
	for i := len(names) - 1; i >= 0; i-- {
		targets = append(targets, targetTrack(fmt.Sprintf("t%d", i), names[i], "Artist"))
	}

	n, err := Populate(store.Matches(), nil, sources, targets)
	require.NoError(t, err)
	assert.Equal(t, len(names), n)

	used := map[string]bool{}
	for i := range names {
		id, ok, err := store.Matches().Get(fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("t%d", i), id)
		assert.False(t, used[id], "target %s used twice", id)
		used[id] = true
	}
}

func TestPopulate_UnavailableTargetsIgnored(t *testing.T) {
	store := newStore(t)
	gone := targetTrack("t1", "Alpha", "Artist")
	gone.Available = false

	n, err := Populate(store.Matches(), nil,
		[]models.SourceTrack{sourceTrack("s1", "Alpha", "Artist", "Album", 1)},
		[]models.TargetTrack{gone},
	)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok, err := store.Matches().Get("s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPopulate_ManyToOne(t *testing.T) {
	store := newStore(t)
	sources := []models.SourceTrack{
		sourceTrack("s1", "Alpha", "Artist", "Album", 1),
		sourceTrack("s2", "Alpha", "Artist", "Single", 1),
	}
	targets := []models.TargetTrack{targetTrack("t1", "Alpha", "Artist")}

	n, err := Populate(store.Matches(), nil, sources, targets)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{"s1", "s2"} {
		got, ok, err := store.Matches().Get(id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "t1", got)
	}
}

func TestPopulate_NoMatches(t *testing.T) {
	store := newStore(t)
	n, err := Populate(store.Matches(), nil,
		[]models.SourceTrack{sourceTrack("s1", "Alpha", "Artist", "Album", 1)},
		[]models.TargetTrack{targetTrack("t1", "Bravo", "Someone")},
	)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = Populate(store.Matches(), nil, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
