package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/store/mongo"
	"github.com/xraph/dyson/store/storetest"
)

// TestConformance needs a replica set, e.g.
// DYSON_TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0
func TestConformance(t *testing.T) {
	uri := os.Getenv("DYSON_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DYSON_TEST_MONGO_URI not set")
	}

	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		n++
		database := fmt.Sprintf("dyson_test_%d_%d", time.Now().UnixNano(), n)
		s, err := mongo.Open(ctx, uri, database)
		require.NoError(t, err)
		require.NoError(t, s.Migrate(ctx))
		// Runs after the suite has closed s.
		t.Cleanup(func() { dropDatabase(uri, database) })
		return s
	})
}

func dropDatabase(uri, database string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := mongo.Open(ctx, uri, database)
	if err != nil {
		return
	}
	defer s.Close()
	_ = s.DB().Drop(ctx)
}
