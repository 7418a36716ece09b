package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	cachedomain "marketplace-backend/internal/cache/domain"

	"cloud.google.com/go/firestore"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CachedSearchCollection is the Firestore collection holding cache documents
const CachedSearchCollection = "cached_searches"

type firestoreEntry struct {
	CacheKey  string    `firestore:"cache_key"`
	Results   string    `firestore:"results"`
	CreatedAt time.Time `firestore:"created_at"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

// firestoreBackend implements Backend on a Firestore collection. Expiry is
// compared server-side in queries.
type firestoreBackend struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreBackend creates a cloud document store backend
func NewFirestoreBackend(client *firestore.Client) Backend {
	return &firestoreBackend{
		client:     client,
		collection: CachedSearchCollection,
	}
}

func (f *firestoreBackend) Name() string {
	return "firestore"
}

// docID keeps arbitrary cache keys within Firestore document id rules
func docID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (f *firestoreBackend) Get(ctx context.Context, key string, now time.Time) (*cachedomain.CachedSearch, error) {
	iter := f.client.Collection(f.collection).
		Where("cache_key", "==", key).
		Where("expires_at", ">", now.UTC()).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query cached search")
	}

	var e firestoreEntry
	if err := doc.DataTo(&e); err != nil {
		return nil, errors.Wrap(err, "decode cached search")
	}

	return &cachedomain.CachedSearch{
		CacheKey:  e.CacheKey,
		Results:   e.Results,
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
	}, nil
}

func (f *firestoreBackend) Put(ctx context.Context, entry *cachedomain.CachedSearch) error {
	_, err := f.client.Collection(f.collection).Doc(docID(entry.CacheKey)).Set(ctx, firestoreEntry{
		CacheKey:  entry.CacheKey,
		Results:   entry.Results,
		CreatedAt: entry.CreatedAt.UTC(),
		ExpiresAt: entry.ExpiresAt.UTC(),
	})
	return errors.Wrap(err, "write cached search")
}

func (f *firestoreBackend) DeleteExpired(ctx context.Context, key string, now time.Time) error {
	ref := f.client.Collection(f.collection).Doc(docID(key))

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var e firestoreEntry
		if err := snap.DataTo(&e); err != nil {
			return err
		}
		if e.ExpiresAt.After(now) {
			return nil
		}
		return tx.Delete(ref)
	})
	return errors.Wrap(err, "delete expired cached search")
}

func (f *firestoreBackend) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	for {
		docs, err := f.client.Collection(f.collection).
			Where("expires_at", "<", now.UTC()).
			Limit(PurgeBatchSize).
			Documents(ctx).
			GetAll()
		if err != nil {
			return total, errors.Wrap(err, "query expired cached searches")
		}
		if len(docs) == 0 {
			return total, nil
		}

		bw := f.client.BulkWriter(ctx)
		jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
		for _, doc := range docs {
			// the precondition skips documents rewritten since the query
			job, err := bw.Delete(doc.Ref, firestore.LastUpdateTime(doc.UpdateTime))
			if err != nil {
				bw.End()
				return total, errors.Wrap(err, "enqueue delete")
			}
			jobs = append(jobs, job)
		}
		bw.End()

		for _, job := range jobs {
			if _, err := job.Results(); err != nil {
				if status.Code(err) == codes.FailedPrecondition || status.Code(err) == codes.NotFound {
					continue
				}
				return total, errors.Wrap(err, "delete expired cached search")
			}
			total++
		}

		if len(docs) < PurgeBatchSize {
			return total, nil
		}
	}
}
