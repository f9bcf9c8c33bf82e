package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
	"github.com/jobtrack/application-tracker/internal/patch"
)

const mongoCounters = "counters"

// MongoDBStorage implements Storage interface using MongoDB. Integer ids are
// issued from a counters collection so records keep the same shape as the
// SQL backends.
type MongoDBStorage struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDBStorage creates a new MongoDB storage instance
func NewMongoDBStorage(cfg config.StorageConfig) (*MongoDBStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	m := &MongoDBStorage{client: client, db: client.Database(cfg.Database)}
	if err := m.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *MongoDBStorage) ensureIndexes(ctx context.Context) error {
	_, err := m.db.Collection(tableUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = m.db.Collection(tableApplications).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create applications index: %w", err)
	}
	return nil
}

func mongoErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStore, err)
}

// nextID atomically increments the counter for a collection.
func (m *MongoDBStorage) nextID(ctx context.Context, collection string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := m.db.Collection(mongoCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": collection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, mongoErr("failed to allocate id for "+collection, err)
	}
	return counter.Seq, nil
}

// ListApplications returns up to limit records, newest date first.
func (m *MongoDBStorage) ListApplications(ctx context.Context, limit int) ([]models.Application, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.db.Collection(tableApplications).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mongoErr("failed to query applications", err)
	}

	apps := []models.Application{}
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, mongoErr("failed to decode applications", err)
	}
	return apps, nil
}

// CreateApplication inserts a record and returns it with its assigned id.
func (m *MongoDBStorage) CreateApplication(ctx context.Context, app models.NewApplication) (*models.Application, error) {
	id, err := m.nextID(ctx, tableApplications)
	if err != nil {
		return nil, err
	}

	created := models.Application{
		ID:         id,
		Company:    app.Company,
		Position:   app.Position,
		Source:     app.Source,
		Date:       app.Date,
		Status:     app.Status,
		Automation: app.Automation,
		Salary:     app.Salary,
		Location:   app.Location,
		Notes:      app.Notes,
	}
	if _, err := m.db.Collection(tableApplications).InsertOne(ctx, created); err != nil {
		return nil, mongoErr("failed to insert application", err)
	}
	return &created, nil
}

// mongoSetDocument translates a patch into the body of a $set operator.
func mongoSetDocument(p patch.Patch) (bson.D, error) {
	changes := p.Changes()
	if len(changes) == 0 {
		return nil, models.ErrNoFieldsProvided
	}
	set := make(bson.D, 0, len(changes))
	for _, c := range changes {
		set = append(set, bson.E{Key: c.Field.Column(), Value: c.Value})
	}
	return set, nil
}

// UpdateApplication writes only the fields present in p.
func (m *MongoDBStorage) UpdateApplication(ctx context.Context, id int64, p patch.Patch) (*models.Application, error) {
	set, err := mongoSetDocument(p)
	if err != nil {
		return nil, err
	}

	var updated models.Application
	err = m.db.Collection(tableApplications).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, mongoErr(fmt.Sprintf("failed to update application %d", id), err)
	}
	return &updated, nil
}

// DeleteApplication removes the record permanently.
func (m *MongoDBStorage) DeleteApplication(ctx context.Context, id int64) error {
	res, err := m.db.Collection(tableApplications).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongoErr(fmt.Sprintf("failed to delete application %d", id), err)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// AppendLog inserts an automation log entry.
func (m *MongoDBStorage) AppendLog(ctx context.Context, entry models.AutomationLog) (*models.AutomationLog, error) {
	id, err := m.nextID(ctx, tableLogs)
	if err != nil {
		return nil, err
	}
	entry.ID = id
	entry.Date = entry.Date.UTC()

	if _, err := m.db.Collection(tableLogs).InsertOne(ctx, entry); err != nil {
		return nil, mongoErr("failed to append automation log", err)
	}
	return &entry, nil
}

// ListLogs returns up to limit log entries, newest first.
func (m *MongoDBStorage) ListLogs(ctx context.Context, limit int) ([]models.AutomationLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.db.Collection(tableLogs).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mongoErr("failed to query automation logs", err)
	}

	logs := []models.AutomationLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, mongoErr("failed to decode automation logs", err)
	}
	return logs, nil
}

// ListIntegrations returns every configured integration.
func (m *MongoDBStorage) ListIntegrations(ctx context.Context) ([]models.Integration, error) {
	out := []models.Integration{}
	if err := m.findAll(ctx, tableIntegrations, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStatusData returns the precomputed status collection.
func (m *MongoDBStorage) ListStatusData(ctx context.Context) ([]models.StatusDatum, error) {
	out := []models.StatusDatum{}
	if err := m.findAll(ctx, tableStatusData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListJobBoardData returns the precomputed job board collection.
func (m *MongoDBStorage) ListJobBoardData(ctx context.Context) ([]models.JobBoardDatum, error) {
	out := []models.JobBoardDatum{}
	if err := m.findAll(ctx, tableJobBoardData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoDBStorage) findAll(ctx context.Context, collection string, out any) error {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return mongoErr("failed to query "+collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return mongoErr("failed to decode "+collection, err)
	}
	return nil
}

// CreateUser inserts a user. The unique email index reports duplicates.
func (m *MongoDBStorage) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	id, err := m.nextID(ctx, tableUsers)
	if err != nil {
		return nil, err
	}

	u := models.User{ID: id, Email: email, Name: name, PasswordHash: passwordHash}
	if _, err := m.db.Collection(tableUsers).InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateEmail(email)
		}
		return nil, mongoErr("failed to create user", err)
	}
	return &u, nil
}

// GetUserByEmail returns nil, nil when no user has the email.
func (m *MongoDBStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := m.db.Collection(tableUsers).FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mongoErr("failed to find user", err)
	}
	return &u, nil
}

// Ping verifies the connection to the primary.
func (m *MongoDBStorage) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return mongoErr("mongodb ping failed", err)
	}
	return nil
}

// Close disconnects the client
func (m *MongoDBStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
