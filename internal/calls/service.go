package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"callnotes/internal/audit"
	"callnotes/pkg/logger"

	"github.com/google/uuid"
)

// Analyzer turns a raw transcript into the four structured fields.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (Analysis, error)
}

// Gate bounds concurrent analyses per owner. Acquire returns ErrBusy when no slot is free.
type Gate interface {
	Acquire(ctx context.Context, ownerID string) (release func(), err error)
}

// Auditor records best-effort audit events.
type Auditor interface {
	Append(ctx context.Context, e audit.Event) error
}

type Options struct {
	Gate  Gate
	Audit Auditor
}

// Service implements call ingestion (Create) and the owner-scoped record operations.
//
// It holds no mutable state of its own; concurrent updates to one call are last-write-wins.
type Service struct {
	repo     Repository
	analyzer Analyzer
	gate     Gate
	audit    Auditor
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, analyzer Analyzer, opts Options) *Service {
	return &Service{
		repo:     repo,
		analyzer: analyzer,
		gate:     opts.Gate,
		audit:    opts.Audit,
		clock:    time.Now,
	}
}

// Create validates the input, runs one analysis and persists the result.
// A failed analysis or a failed write leaves nothing behind.
func (s *Service) Create(ctx context.Context, ownerID, title, transcript string) (Call, error) {
	if ownerID == "" {
		return Call{}, ErrUnauthorized
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(transcript) == "" {
		return Call{}, fmt.Errorf("%w: title and transcript are required", ErrInvalidInput)
	}

	if s.gate != nil {
		release, err := s.gate.Acquire(ctx, ownerID)
		if err != nil {
			return Call{}, err
		}
		defer release()
	}

	res, err := s.analyzer.Analyze(ctx, transcript)
	if err != nil {
		s.record(ctx, audit.Event{
			Type:        audit.EventTypeAnalysisFailed,
			ActorUserID: ownerID,
			Message:     truncate(err.Error(), 500),
		})
		return Call{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	now := s.now()
	c := Call{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Transcript:  transcript,
		Summary:     res.Summary,
		KeyInsights: res.KeyInsights,
		PainPoints:  res.PainPoints,
		NextSteps:   res.NextSteps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	out, err := s.repo.Insert(ctx, c)
	if err != nil {
		return Call{}, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	s.record(ctx, audit.Event{Type: audit.EventTypeCallCreated, ActorUserID: ownerID, CallID: out.ID})
	return out, nil
}

// List returns the owner's calls, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Summary, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	out, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (Call, error) {
	if ownerID == "" {
		return Call{}, ErrUnauthorized
	}
	id, ok := canonicalID(id)
	if !ok {
		return Call{}, ErrNotFound
	}
	c, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Call{}, storeErr(err)
	}
	return c, nil
}

// Update applies the set slots of p and refreshes updated_at.
// An empty patch is rejected before the store is touched.
func (s *Service) Update(ctx context.Context, ownerID, id string, p Patch) (Call, error) {
	if ownerID == "" {
		return Call{}, ErrUnauthorized
	}
	if p.IsEmpty() {
		return Call{}, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Call{}, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	id, ok := canonicalID(id)
	if !ok {
		return Call{}, ErrNotFound
	}

	c, err := s.repo.Update(ctx, ownerID, id, p, s.now())
	if err != nil {
		return Call{}, storeErr(err)
	}

	s.record(ctx, audit.Event{
		Type:        audit.EventTypeCallUpdated,
		ActorUserID: ownerID,
		CallID:      c.ID,
		Metadata:    patchFields(p),
	})
	return c, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrUnauthorized
	}
	id, ok := canonicalID(id)
	if !ok {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return storeErr(err)
	}
	s.record(ctx, audit.Event{Type: audit.EventTypeCallDeleted, ActorUserID: ownerID, CallID: id})
	return nil
}

func (s *Service) now() time.Time {
	// Postgres keeps microseconds; truncating keeps returned and re-read values equal.
	return s.clock().UTC().Truncate(time.Microsecond)
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", string(e.Type), "err", err)
	}
}

func storeErr(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
}

// canonicalID returns id in the lowercase hyphenated form calls are stored under.
// Ids that cannot name a stored call report false and behave as non-existent.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func patchFields(p Patch) string {
	fields := make([]string, 0, 5)
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Summary != nil {
		fields = append(fields, "summary")
	}
	if p.KeyInsights != nil {
		fields = append(fields, "key_insights")
	}
	if p.PainPoints != nil {
		fields = append(fields, "pain_points")
	}
	if p.NextSteps != nil {
		fields = append(fields, "next_steps")
	}
	b, _ := json.Marshal(map[string][]string{"fields": fields})
	return string(b)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
