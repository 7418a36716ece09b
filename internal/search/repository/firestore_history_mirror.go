package repository

import (
	"context"
	"time"

	searchdomain "marketplace-backend/internal/search/domain"

	"cloud.google.com/go/firestore"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/iterator"
)

// HistoryCollection is the Firestore collection mirroring search history
const HistoryCollection = "search_history"

type firestoreHistory struct {
	UserID     int64     `firestore:"user_id"`
	Query      string    `firestore:"query"`
	Parameters string    `firestore:"parameters"`
	CreatedAt  time.Time `firestore:"created_at"`
}

type firestoreHistoryMirror struct {
	client *firestore.Client
}

func NewFirestoreHistoryMirror(client *firestore.Client) HistoryMirror {
	return &firestoreHistoryMirror{client: client}
}

func (m *firestoreHistoryMirror) Create(ctx context.Context, entry *searchdomain.SearchHistory) error {
	_, _, err := m.client.Collection(HistoryCollection).Add(ctx, firestoreHistory{
		UserID:     int64(entry.UserID),
		Query:      entry.Query,
		Parameters: entry.Parameters,
		CreatedAt:  entry.CreatedAt.UTC(),
	})
	return errors.Wrap(err, "mirror search history")
}

// ListRecent needs a composite index on (user_id, created_at desc)
func (m *firestoreHistoryMirror) ListRecent(ctx context.Context, userID uint, limit int) ([]searchdomain.SearchHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	iter := m.client.Collection(HistoryCollection).
		Where("user_id", "==", int64(userID)).
		OrderBy("created_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var rows []searchdomain.SearchHistory
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "query mirrored history")
		}

		var h firestoreHistory
		if err := doc.DataTo(&h); err != nil {
			return nil, errors.Wrap(err, "decode mirrored history")
		}
		rows = append(rows, searchdomain.SearchHistory{
			UserID:     uint(h.UserID),
			Query:      h.Query,
			Parameters: h.Parameters,
			CreatedAt:  h.CreatedAt,
		})
	}
	return rows, nil
}
