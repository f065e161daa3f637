package reporting

import (
	"context"
	"errors"
	"time"

	"callnotes/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// MaxRange bounds a single summary request.
const MaxRange = 366 * 24 * time.Hour

// Repository is the read-only source of call activity.
// calls.MemoryRepo and calls.SQLRepo satisfy it.
type Repository interface {
	ListActivity(ctx context.Context, from, to time.Time) ([]calls.Activity, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) UsageSummary(ctx context.Context, req UsageSummaryRequest) (UsageSummary, error) {
	from, to := req.Range.From.UTC(), req.Range.To.UTC()
	if from.IsZero() || to.IsZero() || !to.After(from) || to.Sub(from) > MaxRange {
		return UsageSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return UsageSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListActivity(ctx, from, to)
	if err != nil {
		return UsageSummary{}, err
	}

	out := UsageSummary{Range: TimeRange{From: from, To: to}}
	owners := make(map[string]struct{})
	perDay := make(map[string]int)
	for _, a := range rows {
		out.TotalCalls++
		owners[a.OwnerID] = struct{}{}
		perDay[a.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	out.ActiveOwners = len(owners)

	for day := truncateDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		out.PerDay = append(out.PerDay, DayCount{Day: key, Calls: perDay[key]})
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
