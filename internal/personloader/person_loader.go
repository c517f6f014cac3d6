package personloader

import (
	"context"
	"fmt"
	"time"

	"github.com/mano-sesan/mano-stats/internal/domain"
	"github.com/mano-sesan/mano-stats/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

type PersonLoader struct {
	Loader *dataloader.Loader
}

func NewPersonLoader(repo repository.PersonRepository) *PersonLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Convert keys to []uuid.UUID
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				return []*dataloader.Result{{Error: fmt.Errorf("invalid UUID: %w", err)}}
			}
			ids[i] = id
		}

		// Fetch persons in batch
		persons, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Map UUID -> person for ordering
		personMap := make(map[uuid.UUID]domain.Person)
		for _, p := range persons {
			personMap[p.ID] = p
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if p, ok := personMap[id]; ok {
				results[i] = &dataloader.Result{Data: p}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &PersonLoader{Loader: loader}
}

// Load fetches one person through the batching loader.
func (l *PersonLoader) Load(ctx context.Context, id uuid.UUID) (domain.Person, error) {
	thunk := l.Loader.Load(ctx, dataloader.StringKey(id.String()))
	value, err := thunk()
	if err != nil {
		return domain.Person{}, err
	}
	person, ok := value.(domain.Person)
	if !ok {
		return domain.Person{}, fmt.Errorf("person %s not found", id)
	}
	return person, nil
}
