package tasks

import (
	"fmt"

	"github.com/desertthunder/plsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	FetchTarget
	CreatePlaylist
	PopulateCache
	SearchTracks
	ReconcilePlaylist
	AddFavorites
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case FetchTarget:
		return "fetch_target"
	case CreatePlaylist:
		return "create_playlist"
	case PopulateCache:
		return "populate"
	case SearchTracks:
		return "search_tracks"
	case ReconcilePlaylist:
		return "reconcile"
	case AddFavorites:
		return "add_favorites"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchSourceUpdate(name string) ProgressUpdate {
	return ProgressUpdate{Phase: FetchSource, Step: 1, Total: 1, Message: fmt.Sprintf("Loading tracks from source playlist '%s'", name)}
}

func fetchTargetUpdate(name string) ProgressUpdate {
	return ProgressUpdate{Phase: FetchTarget, Step: 1, Total: 1, Message: fmt.Sprintf("Loading tracks from target playlist '%s'", name)}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func populateUpdate(paired, total int) ProgressUpdate {
	return ProgressUpdate{Phase: PopulateCache, Step: paired, Total: total, Message: fmt.Sprintf("Paired %d existing tracks", paired)}
}

func searchStartUpdate(pending, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    0,
		Total:   pending,
		Message: fmt.Sprintf("Searching for %d/%d tracks in '%s'", pending, total, name),
	}
}

func searchTrackUpdate(step, total int, t models.SourceTrack, found bool) ProgressUpdate {
	mark := "✓"
	if !found {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, mark, t.ArtistNames(), t.Name),
	}
}

func reconcileUpdate(plan Plan) ProgressUpdate {
	return ProgressUpdate{Phase: ReconcilePlaylist, Step: 1, Total: 1, Message: plan.String(), Data: plan}
}

func favoriteUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{Phase: AddFavorites, Step: step, Total: total, Message: fmt.Sprintf("[%d/%d] Adding %s to favorites", step, total, id)}
}
