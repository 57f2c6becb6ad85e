package repository

import (
	"context"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

var userProjection = bson.M{
	"name":       1,
	"email":      1,
	"phone":      1,
	"pushTokens": 1,
	"role":       1,
	"isActive":   1,
	"createdAt":  1,
}

// UserRepository reads notification recipients from the users collection
type UserRepository struct {
	client *mongodb.MongoClient
}

// NewUserRepository creates a new user repository
func NewUserRepository(client *mongodb.MongoClient) *UserRepository {
	return &UserRepository{client: client}
}

// FindByID returns the user, or nil without error when absent
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	opts := options.FindOne().SetProjection(userProjection)
	err := r.client.Collection(usersCollection).FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAdmins returns every active administrator
func (r *UserRepository) FindAdmins(ctx context.Context) ([]*domain.User, error) {
	filter := bson.M{"role": domain.RoleAdmin, "isActive": true}
	opts := options.Find().SetProjection(userProjection)

	cursor, err := r.client.Collection(usersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var admins []*domain.User
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}
