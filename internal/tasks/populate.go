package tasks

import (
	"github.com/desertthunder/plsync/internal/matching"
	"github.com/desertthunder/plsync/internal/models"
)

// Populate pairs tracks already present on the target with source tracks and records each pair.
//
// The first pass walks targets in order and binds each to the first unconsumed source it matches.
// The second pass walks the sources left over and binds each to the first matching target not yet
// taken by this pass, so duplicated source tracks can share a target already bound in the first pass.
// Unavailable targets never pair. It returns the number of pairs recorded.
func Populate(matches MatchStore, matcher *matching.Matcher, sources []models.SourceTrack, targets []models.TargetTrack) (int, error) {
	if matcher == nil {
		matcher = matching.New(matching.Options{})
	}

	consumed := make([]bool, len(sources))
	taken := make([]bool, len(targets))
	paired := 0

	insert := func(source models.SourceTrack, target models.TargetTrack) error {
		if err := matches.Insert(models.MatchRecord{SourceID: source.ID, TargetID: target.ID}); err != nil {
			return err
		}
		paired++
		return nil
	}

	for _, target := range targets {
		if !eligible(target) {
			continue
		}
		for si, source := range sources {
			if consumed[si] || !matcher.Match(target, source, nil) {
				continue
			}
			if err := insert(source, target); err != nil {
				return paired, err
			}
			consumed[si] = true
			break
		}
	}

	for si, source := range sources {
		if consumed[si] {
			continue
		}
		for ti, target := range targets {
			if taken[ti] || !eligible(target) || !matcher.Match(target, source, nil) {
				continue
			}
			if err := insert(source, target); err != nil {
				return paired, err
			}
			taken[ti] = true
			break
		}
	}
	return paired, nil
}

func eligible(t models.TargetTrack) bool {
	return t.Available && t.ID != ""
}
