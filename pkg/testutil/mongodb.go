package testutil

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// MongoDBImage is the server image used by integration tests.
const MongoDBImage = "mongo:7"

// StartMongoDB runs a disposable MongoDB server for the test and returns its connection URI.
// The container is terminated when the test ends. The test is skipped in short mode.
func StartMongoDB(t *testing.T) string {
	t.Helper()
	RequireIntegration(t)

	ctx := context.Background()
	container, err := mongodb.Run(ctx, MongoDBImage)
	if err != nil {
		t.Fatalf("Failed to start MongoDB container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}
	return uri
}
