package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"campushub/internal/domain"
)

// batchCheckSize bounds how many registration checks run at once.
const batchCheckSize = 10

func (s *registrationService) GetEventRegistrations(ctx context.Context, clubID, eventID string) ([]*domain.Registration, error) {
	if strings.TrimSpace(clubID) == "" || strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("%w: club id and event id are required", domain.ErrInvalidInput)
	}

	var members, guests []*domain.Registration
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.do(gctx, "registration.list_members", func(ctx context.Context) error {
			var err error
			members, err = s.registrations.ListByEvent(ctx, domain.PartitionMember, clubID, eventID)
			return err
		})
	})
	g.Go(func() error {
		return s.store.do(gctx, "registration.list_guests", func(ctx context.Context) error {
			var err error
			guests, err = s.registrations.ListByEvent(ctx, domain.PartitionGuest, clubID, eventID)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list event registrations: %w", err)
	}

	out := make([]*domain.Registration, 0, len(members)+len(guests))
	out = append(out, members...)
	out = append(out, guests...)
	return out, nil
}

func (s *registrationService) GetEventRegistrationStats(ctx context.Context, clubID, eventID string) (*domain.RegistrationStats, error) {
	regs, err := s.GetEventRegistrations(ctx, clubID, eventID)
	if err != nil {
		return nil, err
	}
	return computeStats(regs), nil
}

func computeStats(regs []*domain.Registration) *domain.RegistrationStats {
	stats := &domain.RegistrationStats{
		TotalRegistrations: len(regs),
		ByStatus:           make(map[domain.RegistrationStatus]int),
	}
	for _, r := range regs {
		stats.ByStatus[r.Status]++
		if r.CheckInStatus == domain.CheckedIn {
			stats.CheckedIn++
		}
		if r.Partition == domain.PartitionGuest {
			stats.Guests++
		} else {
			stats.Members++
		}
	}
	return stats
}

// GetEventRegistrationCount returns the member count shown on listing pages.
// It never fails: any error is logged and reported as zero.
func (s *registrationService) GetEventRegistrationCount(ctx context.Context, clubID, eventID string) int {
	if strings.TrimSpace(clubID) == "" || strings.TrimSpace(eventID) == "" {
		return 0
	}
	load := func(ctx context.Context) (int, error) {
		var n int
		err := s.store.do(ctx, "registration.count", func(ctx context.Context) error {
			var err error
			n, err = s.registrations.CountByEvent(ctx, domain.PartitionMember, clubID, eventID)
			return err
		})
		return n, err
	}

	var (
		n   int
		err error
	)
	if s.countCache != nil {
		n, err = s.countCache.GetOrLoad(ctx, domain.EventKey{ClubID: clubID, EventID: eventID}, load)
	} else {
		n, err = load(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "registration count unavailable", "club_id", clubID, "event_id", eventID, "err", err)
		return 0
	}
	return n
}

// BatchCheckUserRegistrations returns the ids of events in which actor holds an
// active registration, in input order. Checks run in concurrent batches.
func (s *registrationService) BatchCheckUserRegistrations(ctx context.Context, actor domain.Actor, events []domain.EventKey) ([]string, error) {
	if actor.ID == "" {
		return nil, fmt.Errorf("%w: actor id is required", domain.ErrInvalidInput)
	}

	registered := make([]bool, len(events))
	for start := 0; start < len(events); start += batchCheckSize {
		end := min(start+batchCheckSize, len(events))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				ok, err := s.IsRegistered(gctx, events[i].ClubID, events[i].EventID, actor)
				if err != nil {
					return fmt.Errorf("event %s: %w", events[i].EventID, err)
				}
				registered[i] = ok
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("batch check registrations: %w", err)
		}
	}

	ids := make([]string, 0)
	for i, ok := range registered {
		if ok {
			ids = append(ids, events[i].EventID)
		}
	}
	return ids, nil
}
