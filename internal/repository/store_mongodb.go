package repository

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"stockex-offline-sync/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBStore implements LocalStore using MongoDB.
type MongoDBStore struct {
	client      *mongo.Client
	inventories *mongo.Collection
	products    *mongo.Collection
	clock       *clock
	mu          sync.Mutex
}

// NewMongoDBStore creates a new MongoDB local store.
func NewMongoDBStore(uri, database string) (*MongoDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	store := &MongoDBStore{
		client:      client,
		inventories: db.Collection("pending_inventories"),
		products:    db.Collection("cached_products"),
		// BSON dates hold milliseconds; versions must survive the round trip.
		clock:       newClockWithResolution(time.Millisecond),
	}

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{store.inventories, mongo.IndexModel{
			Keys: bson.D{{Key: "synced", Value: 1}, {Key: "timestamp", Value: 1}},
		}},
		{store.products, mongo.IndexModel{
			Keys: bson.D{{Key: "barcode", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"barcode": bson.M{"$gt": ""}}),
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			log.Printf("[MongoDB] Warning: failed to create index: %v", err)
		}
	}

	log.Printf("[MongoDB] Connected to %s", database)
	return store, nil
}

// SaveInventory upserts a pending inventory keyed by LocalID.
func (s *MongoDBStore) SaveInventory(ctx context.Context, inv *model.PendingInventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(inv, s.clock.Now())

	prior, err := s.getInventory(ctx, inv.LocalID)
	if err != nil {
		return storageErr("save inventory", err)
	}
	synced := keepsSync(prior, inv.Lines)

	filter := bson.M{"_id": inv.LocalID}
	update := bson.M{
		"$set": bson.M{
			"location_id": inv.LocationID,
			"date":        inv.Date,
			"lines":       inv.Lines,
			"timestamp":   inv.Timestamp,
			"synced":      synced,
		},
	}
	if _, err := s.inventories.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return storageErr("save inventory", err)
	}

	inv.Synced = synced
	inv.ServerID, inv.SyncedAt = nil, nil
	if prior != nil {
		inv.ServerID = prior.ServerID
		inv.SyncedAt = prior.SyncedAt
	}
	return nil
}

// GetInventory returns the inventory stored under localID, or nil.
func (s *MongoDBStore) GetInventory(ctx context.Context, localID string) (*model.PendingInventory, error) {
	inv, err := s.getInventory(ctx, localID)
	return inv, storageErr("get inventory", err)
}

func (s *MongoDBStore) getInventory(ctx context.Context, localID string) (*model.PendingInventory, error) {
	var inv model.PendingInventory
	err := s.inventories.FindOne(ctx, bson.M{"_id": localID}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetPendingInventories returns unsynced inventories ordered by timestamp.
func (s *MongoDBStore) GetPendingInventories(ctx context.Context) ([]model.PendingInventory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.inventories.Find(ctx, bson.M{"synced": false}, opts)
	if err != nil {
		return nil, storageErr("get pending inventories", err)
	}
	defer cursor.Close(ctx)

	pending := []model.PendingInventory{}
	if err := cursor.All(ctx, &pending); err != nil {
		return nil, storageErr("get pending inventories", err)
	}
	return pending, nil
}

// MarkSynced records the server acknowledgment. The version filter makes the
// acknowledgment a single atomic update; a record written since the
// submission only gets its server id.
func (s *MongoDBStore) MarkSynced(ctx context.Context, localID string, serverID int64, version time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ack := bson.M{"$set": bson.M{
		"server_id": serverID,
		"synced":    true,
		"synced_at": s.clock.Now(),
	}}
	res, err := s.inventories.UpdateOne(ctx, bson.M{"_id": localID, "timestamp": version}, ack)
	if err != nil {
		return false, storageErr("mark synced", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	keep := bson.M{"$set": bson.M{"server_id": serverID}}
	_, err = s.inventories.UpdateOne(ctx, bson.M{"_id": localID}, keep)
	return false, storageErr("mark synced", err)
}

// CacheProduct upserts a product by id, evicting another holder of its barcode.
func (s *MongoDBStore) CacheProduct(ctx context.Context, p model.CachedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Barcode != "" {
		evict := bson.M{"barcode": p.Barcode, "_id": bson.M{"$ne": p.ID}}
		if _, err := s.products.DeleteMany(ctx, evict); err != nil {
			return storageErr("cache product", err)
		}
	}

	_, err := s.products.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	return storageErr("cache product", err)
}

// FindProductByBarcode returns the cached product or nil.
func (s *MongoDBStore) FindProductByBarcode(ctx context.Context, barcode string) (*model.CachedProduct, error) {
	if barcode == "" {
		return nil, nil
	}

	var p model.CachedProduct
	err := s.products.FindOne(ctx, bson.M{"barcode": barcode}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find product", err)
	}
	return &p, nil
}

// Stats returns counters about the local store.
func (s *MongoDBStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	pending, err := s.inventories.CountDocuments(ctx, bson.M{"synced": false})
	if err != nil {
		return nil, storageErr("stats", err)
	}
	synced, err := s.inventories.CountDocuments(ctx, bson.M{"synced": true})
	if err != nil {
		return nil, storageErr("stats", err)
	}
	products, err := s.products.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, storageErr("stats", err)
	}

	return map[string]interface{}{
		"backend":             "mongodb",
		"pending_inventories": pending,
		"synced_inventories":  synced,
		"cached_products":     products,
	}, nil
}

// Close disconnects from MongoDB.
func (s *MongoDBStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ensure MongoDBStore implements LocalStore
var _ LocalStore = (*MongoDBStore)(nil)
