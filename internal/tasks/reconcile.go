package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/services"
)

// PlanKind is the update a target playlist needs.
type PlanKind int

const (
	PlanNoop PlanKind = iota
	PlanAppend
	PlanReplace
)

func (k PlanKind) String() string {
	switch k {
	case PlanNoop:
		return "noop"
	case PlanAppend:
		return "append"
	case PlanReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Plan is the outcome of [Reconcile]. Tracks is the suffix to append for
// [PlanAppend] and the full desired sequence for [PlanReplace].
type Plan struct {
	Kind   PlanKind
	Tracks []string
}

func (p Plan) String() string {
	switch p.Kind {
	case PlanNoop:
		return "Playlist is up to date"
	case PlanAppend:
		return fmt.Sprintf("Appending %d tracks", len(p.Tracks))
	case PlanReplace:
		return fmt.Sprintf("Replacing playlist contents with %d tracks", len(p.Tracks))
	default:
		return p.Kind.String()
	}
}

// Duplicate reports a source track whose target id was already claimed earlier in the order.
type Duplicate struct {
	Track    models.SourceTrack
	TargetID string
}

// DesiredIDs maps sources to their cached target ids in source order.
//
// Tracks without an id or a cached match are left out. A target id is kept only at its first
// occurrence; later claimants are returned as duplicates.
func DesiredIDs(sources []models.SourceTrack, matches MatchStore) ([]string, []Duplicate, error) {
	var (
		ids  []string
		dups []Duplicate
		seen = make(map[string]struct{})
	)
	for _, t := range sources {
		if t.ID == "" {
			continue
		}
		target, ok, err := matches.Get(t.ID)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		if _, dup := seen[target]; dup {
			dups = append(dups, Duplicate{Track: t, TargetID: target})
			continue
		}
		seen[target] = struct{}{}
		ids = append(ids, target)
	}
	return ids, dups, nil
}

// Reconcile computes the smallest update that turns current into desired.
func Reconcile(desired, current []string) Plan {
	switch {
	case slices.Equal(desired, current):
		return Plan{Kind: PlanNoop}
	case len(current) < len(desired) && slices.Equal(desired[:len(current)], current):
		return Plan{Kind: PlanAppend, Tracks: slices.Clone(desired[len(current):])}
	default:
		return Plan{Kind: PlanReplace, Tracks: slices.Clone(desired)}
	}
}

// TrackIDs returns the ids of tracks in order.
func TrackIDs(tracks []models.TargetTrack) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}
	return ids
}

// Apply executes plan against the target playlist. Each catalog call runs through the retry policy.
func Apply(ctx context.Context, target services.TargetCatalog, policy *retry.Policy, playlistID string, plan Plan) error {
	switch plan.Kind {
	case PlanNoop:
		return nil
	case PlanReplace:
		if err := retry.Run(ctx, policy, "clear playlist", []any{playlistID}, func(ctx context.Context) error {
			return target.ClearPlaylist(ctx, playlistID)
		}); err != nil {
			return err
		}
	case PlanAppend:
	default:
		return fmt.Errorf("unknown plan kind %d", plan.Kind)
	}

	if len(plan.Tracks) == 0 {
		return nil
	}
	return retry.Run(ctx, policy, "append tracks", []any{playlistID, len(plan.Tracks)}, func(ctx context.Context) error {
		return target.AppendTracks(ctx, playlistID, plan.Tracks)
	})
}
