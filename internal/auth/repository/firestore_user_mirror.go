package repository

import (
	"context"
	"strconv"
	"time"

	authdomain "marketplace-backend/internal/auth/domain"

	"cloud.google.com/go/firestore"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/iterator"
)

// UsersCollection is the Firestore collection mirroring the users table
const UsersCollection = "users"

type firestoreUser struct {
	ID           int64     `firestore:"id"`
	Username     string    `firestore:"username"`
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"password_hash"`
	CreatedAt    time.Time `firestore:"created_at"`
}

type firestoreUserMirror struct {
	client *firestore.Client
}

// NewFirestoreUserMirror creates a UserMirror on Firestore
func NewFirestoreUserMirror(client *firestore.Client) UserMirror {
	return &firestoreUserMirror{client: client}
}

func (m *firestoreUserMirror) Create(ctx context.Context, user *authdomain.User) error {
	_, err := m.client.Collection(UsersCollection).Doc(strconv.FormatUint(uint64(user.ID), 10)).Set(ctx, firestoreUser{
		ID:           int64(user.ID),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC(),
	})
	return errors.Wrap(err, "mirror user")
}

func (m *firestoreUserMirror) FindByEmail(ctx context.Context, email string) (*authdomain.User, error) {
	iter := m.client.Collection(UsersCollection).Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query mirrored user")
	}

	var u firestoreUser
	if err := doc.DataTo(&u); err != nil {
		return nil, errors.Wrap(err, "decode mirrored user")
	}

	return &authdomain.User{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}, nil
}
