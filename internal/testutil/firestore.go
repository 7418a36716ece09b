//go:build integration

package testutil

import (
	"context"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"
	tcfirestore "github.com/testcontainers/testcontainers-go/modules/gcloud/firestore"
)

// FirestoreEmulatorImage ships the gcloud Firestore emulator
const FirestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:513.0.0-emulators"

// NewFirestoreEmulator starts a Firestore emulator container and returns a
// client pointed at it through FIRESTORE_EMULATOR_HOST.
func NewFirestoreEmulator(t *testing.T) *firestore.Client {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcfirestore.Run(ctx, FirestoreEmulatorImage, tcfirestore.WithProjectID("marketplace-test"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	t.Setenv("FIRESTORE_EMULATOR_HOST", ctr.URI())

	client, err := firestore.NewClient(ctx, ctr.ProjectID())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}
