package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sneakersync/internal/model"
)

// MongoRepository keeps each brand in its own collection (adidas, nike, jordan).
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongo(ctx context.Context, uri, database string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &MongoRepository{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes creates the unique sku index of every brand collection.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	var errs []error
	for _, b := range model.Brands {
		_, err := r.collection(b).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("sku_unique"),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("mongo: index %s.sku: %w", b.Partition(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *MongoRepository) collection(b model.Brand) *mongo.Collection {
	return r.db.Collection(b.Partition())
}

func (r *MongoRepository) FindByID(ctx context.Context, brand model.Brand, id string) (*model.CanonicalProduct, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, brand, bson.M{"_id": oid})
}

func (r *MongoRepository) FindBySKU(ctx context.Context, brand model.Brand, sku string) (*model.CanonicalProduct, error) {
	return r.findOne(ctx, brand, bson.M{"sku": sku})
}

func (r *MongoRepository) findOne(ctx context.Context, brand model.Brand, filter bson.M) (*model.CanonicalProduct, error) {
	var p model.CanonicalProduct
	err := r.collection(brand).FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", brand.Partition(), err)
	}
	return &p, nil
}

func (r *MongoRepository) Insert(ctx context.Context, brand model.Brand, p model.CanonicalProduct) (string, error) {
	p.ID = ""
	res, err := r.collection(brand).InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", fmt.Errorf("mongo: insert %s: %w", brand.Partition(), err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (r *MongoRepository) Replace(ctx context.Context, brand model.Brand, p model.CanonicalProduct) error {
	p.ID = ""
	res, err := r.collection(brand).ReplaceOne(ctx, bson.M{"sku": p.SKU}, p)
	if err != nil {
		return fmt.Errorf("mongo: replace %s: %w", brand.Partition(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context, brand model.Brand) ([]model.CanonicalProduct, error) {
	cur, err := r.collection(brand).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list %s: %w", brand.Partition(), err)
	}
	var out []model.CanonicalProduct
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: list %s: %w", brand.Partition(), err)
	}
	return out, nil
}

func (r *MongoRepository) SetPrice(ctx context.Context, brand model.Brand, id, price string) error {
	return r.set(ctx, brand, id, bson.M{"price": price})
}

func (r *MongoRepository) SetImage(ctx context.Context, brand model.Brand, id string, index int, path string) error {
	p, err := r.FindByID(ctx, brand, id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(p.Images) {
		return fmt.Errorf("image index %d out of range (%d images)", index, len(p.Images))
	}
	return r.set(ctx, brand, id, bson.M{fmt.Sprintf("Images.%d", index): path})
}

func (r *MongoRepository) set(ctx context.Context, brand model.Brand, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.collection(brand).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("mongo: update %s: %w", brand.Partition(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
