// Package testutil holds the MongoDB and HTTP helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratafiles/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultMongoURI is used unless STRATAFILES_TEST_MONGO_URI is set.
	DefaultMongoURI = "mongodb://localhost:27017"
	// TestDBName prefixes every per-test database.
	TestDBName = "stratafiles_test"

	// Database names are limited to 63 bytes: prefix, two underscores and
	// an 8 digit pid leave this much for the test name.
	maxTestNameLen = 63 - len(TestDBName) - 2 - 8
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

func mongoURI() string {
	if uri := os.Getenv("STRATAFILES_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return DefaultMongoURI
}

// sharedClient connects once per test binary.
func sharedClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		opts := options.Client().
			ApplyURI(mongoURI()).
			SetMaxPoolSize(200).
			SetMinPoolSize(10).
			SetMaxConnIdleTime(30 * time.Second).
			SetConnectTimeout(10 * time.Second).
			SetServerSelectionTimeout(10 * time.Second)

		client, clientErr = mongo.Connect(ctx, opts)
		if clientErr == nil {
			clientErr = client.Ping(ctx, nil)
		}
	})
	return client, clientErr
}

// SetupTestDB returns an empty database with the production indexes in place.
// Every test gets its own database, dropped again on cleanup. Schema
// validators are not installed here; tests that need them call
// validators.EnsureAll themselves.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := sharedClient()
	if err != nil {
		t.Fatalf("connect test MongoDB at %s: %v", mongoURI(), err)
	}

	// Package test binaries run in parallel and can share test names.
	db := c.Database(fmt.Sprintf("%s_%s_%d", TestDBName, dbSafe(t.Name()), os.Getpid()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database on cleanup: %v", err)
		}
	})
	return db
}

// dbSafe maps a test name onto the characters allowed in a database name.
func dbSafe(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if len(s) > maxTestNameLen {
		s = s[:maxTestNameLen]
	}
	return s
}

// TestContext returns a context bounded for one test's database calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
