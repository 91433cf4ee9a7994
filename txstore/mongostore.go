package txstore

import (
	"context"
	"strings"
	"time"

	"github.com/assetbridge-io/relayer/common/types"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "relay_records"

var _ Store = (*MongoStore)(nil)

// MongoStore is the document-store-backed Store: one collection of
// RelayRecord documents, unique on _id, sparse-unique on eventHash and
// relayHash (the dedup constraint), non-unique on user, chain and
// status. Index creation is idempotent and safe to call on every
// startup.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to uri and ensures the relay_records collection
// and its indexes exist.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to document store")
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "failed to ping document store")
	}

	collection := client.Database(dbName).Collection(collectionName)

	s := &MongoStore{client: client, collection: collection}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to ensure indexes")
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	sparseUnique := true
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventHash", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(sparseUnique),
		},
		{
			Keys:    bson.D{{Key: "relayHash", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(sparseUnique),
		},
		{
			Keys:    bson.D{{Key: "sourceToken", Value: 1}},
			Options: options.Index().SetSparse(sparseUnique),
		},
		{
			Keys:    bson.D{{Key: "destToken", Value: 1}},
			Options: options.Index().SetSparse(sparseUnique),
		},
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "chain", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (s *MongoStore) UpsertByID(ctx context.Context, record *types.RelayRecord) (*types.RelayRecord, error) {
	record.NormalizeUser()

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert relay record")
	}

	return record, nil
}

func hashFilter(hash string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"eventHash": hash},
		bson.M{"relayHash": hash},
	}}
}

func (s *MongoStore) HashExists(ctx context.Context, hash string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, hashFilter(hash), options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "failed to check hash existence")
	}
	return count > 0, nil
}

func (s *MongoStore) FindByHash(ctx context.Context, hash string) (*types.RelayRecord, error) {
	var record types.RelayRecord
	err := s.collection.FindOne(ctx, hashFilter(hash)).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find relay record by hash")
	}
	return &record, nil
}

// UpdateStatusByHash sets status on the record matching either hash,
// refusing to overwrite an existing terminal status (CONFIRMED or
// FAILED never downgrades).
func (s *MongoStore) UpdateStatusByHash(ctx context.Context, hash string, status types.RelayStatus) (bool, error) {
	filter := bson.M{
		"$and": bson.A{
			hashFilter(hash),
			bson.M{"status": bson.M{"$nin": bson.A{types.StatusConfirmed, types.StatusFailed}}},
		},
	}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errors.Wrap(err, "failed to update relay record status")
	}

	return result.ModifiedCount > 0, nil
}

func (s *MongoStore) ListAll(ctx context.Context, limit int) ([]*types.RelayRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list relay records")
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

func (s *MongoStore) ListPendingByUser(ctx context.Context, user string) ([]*types.RelayRecord, error) {
	filter := bson.M{"user": strings.ToLower(user), "status": types.StatusPending}
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending relay records by user")
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

func (s *MongoStore) ListPendingByChain(ctx context.Context, chain types.ChainTag) ([]*types.RelayRecord, error) {
	filter := bson.M{"chain": chain, "status": types.StatusPending}
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending relay records by chain")
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

func (s *MongoStore) ClearAll(ctx context.Context) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{})
	return errors.Wrap(err, "failed to clear relay records")
}

func (s *MongoStore) AllHashes(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"eventHash": 1, "relayHash": 1})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan relay records for dedup seed")
	}
	defer cursor.Close(ctx)

	var hashes []string
	for cursor.Next(ctx) {
		var doc struct {
			EventHash string `bson:"eventHash"`
			RelayHash string `bson:"relayHash"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to decode relay record during dedup seed scan")
		}
		if doc.EventHash != "" {
			hashes = append(hashes, doc.EventHash)
		}
		if doc.RelayHash != "" {
			hashes = append(hashes, doc.RelayHash)
		}
	}
	return hashes, cursor.Err()
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]*types.RelayRecord, error) {
	var records []*types.RelayRecord
	for cursor.Next(ctx) {
		var record types.RelayRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, errors.Wrap(err, "failed to decode relay record")
		}
		records = append(records, &record)
	}
	return records, cursor.Err()
}
