package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"relay/pkg/models"
)

type Repository interface {
	GetSchemas(ctx context.Context) ([]models.EventSchema, error)
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &MongoDBRepository{
		collection: db.Collection("event_schemas"),
	}
}

func (r *MongoDBRepository) GetSchemas(ctx context.Context) ([]models.EventSchema, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find event schemas: %w", err)
	}
	defer cursor.Close(ctx)

	var schemas []models.EventSchema
	if err := cursor.All(ctx, &schemas); err != nil {
		return nil, fmt.Errorf("failed to decode event schemas: %w", err)
	}

	return schemas, nil
}
