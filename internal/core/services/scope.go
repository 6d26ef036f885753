package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// ownedCollection loads a collection and checks it belongs to the user.
func ownedCollection(ctx context.Context, store driven.CollectionStore, userID, collectionID int64) (*domain.Collection, error) {
	collection, err := store.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !collection.OwnedBy(userID) {
		return nil, fmt.Errorf("collection %d: %w", collectionID, domain.ErrForbidden)
	}
	return collection, nil
}

// resolveScope turns a scope into the collection ids the user may query.
// All expands to every owned collection; explicit ids are deduplicated and
// each must exist and be owned by the user.
func resolveScope(ctx context.Context, store driven.CollectionStore, userID int64, scope domain.CollectionScope) ([]int64, error) {
	if scope.IsEmpty() {
		return nil, fmt.Errorf("no collections selected: %w", domain.ErrInvalidInput)
	}
	if scope.All {
		ids, err := store.ListIDsByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		if ids == nil {
			ids = []int64{}
		}
		return ids, nil
	}

	seen := make(map[int64]bool, len(scope.IDs))
	ids := make([]int64, 0, len(scope.IDs))
	for _, id := range scope.IDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := ownedCollection(ctx, store, userID, id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
