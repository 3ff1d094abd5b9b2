package credential

import (
	"context"
	"time"

	apperrors "antigravity-gateway/internal/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoTimeout = 5 * time.Second

// mongoCredentialDoc mirrors Credential, adding the slot Position so the
// collection can round-trip list ordering the same way the file/postgres
// stores do.
type mongoCredentialDoc struct {
	Position     int       `bson:"position"`
	RefreshToken string    `bson:"refresh_token"`
	AccessToken  string    `bson:"access_token,omitempty"`
	ExpiresIn    int64     `bson:"expires_in"`
	IssuedAt     int64     `bson:"issued_at"`
	ProjectID    string    `bson:"project_id,omitempty"`
	Email        string    `bson:"email,omitempty"`
	Enabled      bool      `bson:"enabled"`
	CreatedAt    time.Time `bson:"created_at"`
	LastUsedAt   time.Time `bson:"last_used_at,omitempty"`
}

// MongoStore persists the credential list in a MongoDB collection.
// Grounded on the teacher's internal/storage/mongodb connection-setup idiom.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the credentials collection.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if dbName == "" {
		dbName = "antigravity_gateway"
	}
	ctx, cancel := context.WithTimeout(ctx, defaultMongoTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetMaxPoolSize(10).SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, apperrors.StorageCorrupt("connect mongo credential store: " + err.Error())
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, apperrors.StorageCorrupt("ping mongo credential store: " + err.Error())
	}
	collection := client.Database(dbName).Collection("credentials")
	if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "refresh_token", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	}); err != nil {
		return nil, apperrors.StorageCorrupt("create mongo credential index: " + err.Error())
	}
	return &MongoStore{client: client, collection: collection}, nil
}

func (s *MongoStore) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

func (s *MongoStore) Load(ctx context.Context) ([]*Credential, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := s.collection.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, apperrors.StorageCorrupt("list mongo credentials: " + err.Error())
	}
	defer cur.Close(ctx)

	var list []*Credential
	for cur.Next(ctx) {
		var doc mongoCredentialDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, apperrors.StorageCorrupt("decode mongo credential: " + err.Error())
		}
		list = append(list, &Credential{
			RefreshToken: doc.RefreshToken,
			AccessToken:  doc.AccessToken,
			ExpiresIn:    doc.ExpiresIn,
			IssuedAt:     doc.IssuedAt,
			ProjectID:    doc.ProjectID,
			Email:        doc.Email,
			Enabled:      doc.Enabled,
			CreatedAt:    doc.CreatedAt,
			LastUsedAt:   doc.LastUsedAt,
		})
	}
	return list, cur.Err()
}

func (s *MongoStore) Save(ctx context.Context, list []*Credential) error {
	session, err := s.client.StartSession()
	if err != nil {
		return apperrors.StorageCorrupt("start mongo session: " + err.Error())
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := s.collection.DeleteMany(sessCtx, bson.M{}); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, nil
		}
		docs := make([]interface{}, 0, len(list))
		for i, c := range list {
			docs = append(docs, mongoCredentialDoc{
				Position:     i,
				RefreshToken: c.RefreshToken,
				AccessToken:  c.AccessToken,
				ExpiresIn:    c.ExpiresIn,
				IssuedAt:     c.IssuedAt,
				ProjectID:    c.ProjectID,
				Email:        c.Email,
				Enabled:      c.Enabled,
				CreatedAt:    c.CreatedAt,
				LastUsedAt:   c.LastUsedAt,
			})
		}
		_, err := s.collection.InsertMany(sessCtx, docs)
		return nil, err
	})
	return err
}

func (s *MongoStore) Import(ctx context.Context, records []*Credential, opts ImportOptions) (ImportResult, error) {
	existing, err := s.Load(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	merged, result := mergeImport(existing, records, opts)
	if err := s.Save(ctx, merged); err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func (s *MongoStore) ReplaceAt(ctx context.Context, index int, record *Credential) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list[index] = record
	return s.Save(ctx, list)
}

func (s *MongoStore) RemoveAt(ctx context.Context, index int) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list = append(list[:index], list[index+1:]...)
	return s.Save(ctx, list)
}

func (s *MongoStore) SetEnabled(ctx context.Context, index int, enabled bool) error {
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return apperrors.CredentialNotFound("credential index out of range")
	}
	list[index].Enabled = enabled
	return s.Save(ctx, list)
}
