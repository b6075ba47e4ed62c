package evd

import (
	"context"
	"fmt"
)

// SweepOrphans removes physical files that never reached a case's manifest:
// leftovers from cancelled intakes and from dedupe races where a concurrent
// pipeline committed the same bytes first. Manifest-listed files are never
// touched, and cases under an active hold are skipped entirely. Returns the
// removed canonical paths.
func (s *IntakeService) SweepOrphans(ctx context.Context, actor string) ([]string, error) {
	cases, err := s.index.ListCases()
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	actor = s.actorOr(actor)

	var removed []string
	for _, cs := range cases {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		hold, err := s.index.ActiveHold(cs.ID)
		if err != nil {
			return removed, fmt.Errorf("checking hold: %w", err)
		}
		if hold != nil {
			s.logger.Info("sweep skipping case under hold", "case", cs.Identifier)
			continue
		}

		paths, err := s.sweepCase(cs, actor)
		if err != nil {
			return removed, err
		}
		removed = append(removed, paths...)
	}

	if len(removed) > 0 {
		s.logger.Info("orphan sweep complete", "removed", len(removed))
	}
	return removed, nil
}

func (s *IntakeService) sweepCase(cs *Case, actor string) ([]string, error) {
	manifest, err := s.index.Manifest(cs.ID)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	indexed := make(map[string]struct{}, len(manifest))
	for _, m := range manifest {
		indexed[m.CanonicalPath] = struct{}{}
	}

	present, err := s.store.ListCase(cs.Identifier)
	if err != nil {
		return nil, fmt.Errorf("listing case tree: %w", err)
	}

	var removed []string
	for _, p := range present {
		if _, ok := indexed[p]; ok {
			continue
		}

		if err := s.store.Remove(p); err != nil {
			return removed, fmt.Errorf("removing orphan %s: %w", p, err)
		}
		removed = append(removed, p)

		event := &CustodyEvent{
			Type:   EventOrphanSwept,
			CaseID: cs.ID,
			Actor:  actor,
			At:     s.clock.Now().UTC(),
			Note:   "reclaimed unindexed file " + p,
		}
		if _, err := s.index.AppendEvent(event); err != nil {
			return removed, fmt.Errorf("logging sweep: %w", err)
		}
		s.logger.Info("orphan reclaimed", "case", cs.Identifier, "path", p)
	}
	return removed, nil
}
