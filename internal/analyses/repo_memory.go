package analyses

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Analysis
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[int64]Analysis),
		now:  time.Now,
	}
}

// Create stores the analysis under the next id.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	analysis.ID = r.nextID
	analysis.CreatedAt = r.now().UTC().Truncate(time.Microsecond)
	r.byID[analysis.ID] = cloneAnalysis(analysis)
	return cloneAnalysis(analysis), nil
}

// GetByID returns an analysis by its id.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return cloneAnalysis(analysis), nil
}

// ListByOwner returns the owner's analyses, newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Analysis, 0)
	for _, a := range r.byID {
		if a.OwnerID == ownerID {
			out = append(out, cloneAnalysis(a))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// LatestByOwner returns the owner's newest analysis.
func (r *MemoryRepo) LatestByOwner(ctx context.Context, ownerID string) (Analysis, error) {
	list, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return Analysis{}, err
	}
	if len(list) == 0 {
		return Analysis{}, ErrNotFound
	}
	return list[0], nil
}

// Delete removes the analysis if present.
func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
	return nil
}

// cloneAnalysis copies pointer and slice fields so stored records share no
// memory with callers.
func cloneAnalysis(a Analysis) Analysis {
	a.SentimentLabel = clonePtr(a.SentimentLabel)
	a.SentimentScore = clonePtr(a.SentimentScore)
	a.AuthenticityLabel = clonePtr(a.AuthenticityLabel)
	a.AuthenticityScore = clonePtr(a.AuthenticityScore)
	a.Details.DetectedFaces = clonePtr(a.Details.DetectedFaces)
	a.Details.VisualCues = slices.Clone(a.Details.VisualCues)
	a.Details.AudioCues = slices.Clone(a.Details.AudioCues)
	a.Details.AudioFeatures = slices.Clone(a.Details.AudioFeatures)
	a.Details.FrameSentiments = slices.Clone(a.Details.FrameSentiments)
	return a
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
