package orgaccess

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDirectory implements Directory over an organization_users collection.
type MongoDirectory struct {
	col *mongo.Collection
}

func NewMongoDirectory(col *mongo.Collection) *MongoDirectory {
	return &MongoDirectory{col: col}
}

func (d *MongoDirectory) VerifyAccess(ctx context.Context, userID, orgID string) (*Access, error) {
	var m Membership
	err := d.col.FindOne(ctx, bson.M{"userId": userID, "orgId": orgID}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &Access{Role: m.Role}, nil
}

func (d *MongoDirectory) Grant(ctx context.Context, m *Membership) error {
	now := time.Now().UTC()
	filter := bson.M{"userId": m.UserID, "orgId": m.OrgID}
	update := bson.M{"$set": bson.M{
		"role":      m.Role,
		"updatedAt": now,
	}, "$setOnInsert": bson.M{"createdAt": now}}
	_, err := d.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (d *MongoDirectory) FirstForUser(ctx context.Context, userID string) (*Membership, error) {
	var m Membership
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	err := d.col.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
