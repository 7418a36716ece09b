package firestore

import (
	"context"

	"marketplace-backend/pkg/logger"

	gfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/option"
)

// NewClient creates a Firestore client through the Firebase Admin SDK using
// the provided credentials file. An empty file falls back to application
// default credentials.
func NewClient(ctx context.Context, credentialsFile, projectID string) (*gfirestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Firebase app")
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get firestore client")
	}

	logger.GetLogger("firestore").Info("Client initialized successfully")
	return client, nil
}
