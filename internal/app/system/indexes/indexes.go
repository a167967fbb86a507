// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// index is one desired index. Keys are ordered.
type index struct {
	name   string
	keys   bson.D
	unique bool
}

func (ix index) model() mongo.IndexModel {
	opts := options.Index().SetName(ix.name)
	if ix.unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: ix.keys, Options: opts}
}

func keys(fields ...string) bson.D {
	d := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if strings.HasPrefix(f, "-") {
			f, dir = f[1:], -1
		}
		d = append(d, bson.E{Key: f, Value: dir})
	}
	return d
}

// desired lists the indexes per collection, in the order they are ensured.
var desired = []struct {
	collection string
	indexes    []index
}{
	{"files", []index{
		// a storage key maps to exactly one record, whatever the bucket
		{"uniq_file_storage_key", keys("storage_key"), true},
		{"idx_file_owner_folder_created", keys("owner_id", "folder_id", "is_deleted", "-created_at"), false},
		{"idx_file_org_folder_created", keys("org_id", "folder_id", "is_deleted", "-created_at"), false},
		{"idx_file_owner_trash", keys("owner_id", "is_deleted", "-deleted_at"), false},
	}},
	{"folders", []index{
		{"idx_folder_owner_parent_name", keys("owner_id", "parent_id", "is_deleted", "name_ci"), false},
		{"idx_folder_org_parent_name", keys("org_id", "parent_id", "is_deleted", "name_ci"), false},
		{"idx_folder_path", keys("path"), false},
	}},
	{"share_links", []index{
		{"uniq_share_token", keys("token"), true},
		{"idx_share_file_active_created", keys("file_id", "is_active", "-created_at"), false},
		// background deactivation scans active links by expiry
		{"idx_share_active_expires", keys("is_active", "expires_at"), false},
	}},
}

// EnsureAll creates any missing index on every collection. It is idempotent
// and collects every failure into one error so startup can report them all.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, d := range desired {
		if err := ensure(ctx, db.Collection(d.collection), d.indexes); err != nil {
			problems = append(problems, d.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(k bson.D) string {
	parts := make([]string, 0, len(k))
	for _, kv := range k {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(p *bool) bool { return p != nil && *p }

// action is what ensure does for one desired index.
type action int

const (
	actKeep action = iota
	actCreate
	actReplace // same keys, different uniqueness: drop then create
)

// plan decides, by key signature, what to do with each desired index given
// the ones already on the collection. Names are not compared, so an index
// created by hand under another name is reused.
func plan(want []index, have map[string]existingIndex) []action {
	out := make([]action, len(want))
	for i, ix := range want {
		ex, ok := have[keySig(ix.keys)]
		switch {
		case !ok:
			out[i] = actCreate
		case boolVal(ex.Unique) != ix.unique:
			out[i] = actReplace
		default:
			out[i] = actKeep
		}
	}
	return out
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	have := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// the collection may not exist yet
		return have
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var ex existingIndex
		if err := cur.Decode(&ex); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		have[keySig(ex.Key)] = ex
	}
	return have
}

func ensure(ctx context.Context, coll *mongo.Collection, want []index) error {
	have := listIndexes(ctx, coll)
	var errs []string

	for i, act := range plan(want, have) {
		ix := want[i]
		sig := keySig(ix.keys)

		switch act {
		case actKeep:
			zap.L().Debug("reusing existing index",
				zap.String("collection", coll.Name()),
				zap.String("name", have[sig].Name),
				zap.String("keys", sig))
			continue
		case actReplace:
			if _, err := coll.Indexes().DropOne(ctx, have[sig].Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s: %v", ix.name, have[sig].Name, err))
				continue
			}
		}

		start := time.Now()
		if _, err := coll.Indexes().CreateOne(ctx, ix.model()); err != nil {
			if ix.unique && mongo.IsDuplicateKeyError(err) {
				errs = append(errs, ix.name+": cannot create unique index, duplicates present")
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", ix.name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", ix.name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}

		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", ix.name),
			zap.String("keys", sig),
			zap.Bool("unique", ix.unique),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
