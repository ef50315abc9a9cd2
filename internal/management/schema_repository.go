package management

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"relay/pkg/models"
)

type SchemaRepository interface {
	CreateEventSchema(ctx context.Context, schema *models.EventSchema) error
	ListEventSchemas(ctx context.Context) ([]models.EventSchema, error)
	GetEventSchema(ctx context.Context, code string) (*models.EventSchema, error)
	UpdateEventSchema(ctx context.Context, schema *models.EventSchema) error
	DeleteEventSchema(ctx context.Context, code string) error
}

type mongoSchemaRepository struct {
	collection *mongo.Collection
}

func NewSchemaRepository(db *mongo.Database) SchemaRepository {
	return &mongoSchemaRepository{
		collection: db.Collection("event_schemas"),
	}
}

func (r *mongoSchemaRepository) CreateEventSchema(ctx context.Context, schema *models.EventSchema) error {
	_, err := r.collection.InsertOne(ctx, schema)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("event schema '%s' already exists", schema.Code)
		}
		return fmt.Errorf("failed to create event schema: %w", err)
	}

	return nil
}

func (r *mongoSchemaRepository) GetEventSchema(ctx context.Context, code string) (*models.EventSchema, error) {
	filter := bson.M{"_id": code}

	var schema models.EventSchema
	err := r.collection.FindOne(ctx, filter).Decode(&schema)
	if err == mongo.ErrNoDocuments {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event schema: %w", err)
	}

	return &schema, nil
}

func (r *mongoSchemaRepository) ListEventSchemas(ctx context.Context) ([]models.EventSchema, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list event schemas: %w", err)
	}
	defer cursor.Close(ctx)

	var schemas []models.EventSchema
	if err := cursor.All(ctx, &schemas); err != nil {
		return nil, fmt.Errorf("failed to decode event schemas: %w", err)
	}

	return schemas, nil
}

func (r *mongoSchemaRepository) UpdateEventSchema(ctx context.Context, schema *models.EventSchema) error {
	filter := bson.M{"_id": schema.Code}
	update := bson.M{"$set": schema}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update event schema: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("event schema not found")
	}

	return nil
}

func (r *mongoSchemaRepository) DeleteEventSchema(ctx context.Context, code string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": code})
	if err != nil {
		return fmt.Errorf("failed to delete event schema: %w", err)
	}

	if result.DeletedCount == 0 {
		return fmt.Errorf("event schema not found")
	}

	return nil
}
