// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package legacy imports the blogs and users of the document-store
// deployment into the relational schema.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/olegiv/newsdesk/internal/retry"
)

// Collection names of the legacy deployment.
const (
	BlogsCollection = "blogs"
	UsersCollection = "users"
)

const (
	serverSelectionTimeout = 12 * time.Second
	connectTimeout         = 15 * time.Second
)

// Cursor iterates over decoded documents. *mongo.Cursor implements it.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}

// Source yields the legacy collections.
type Source interface {
	Blogs(ctx context.Context) (Cursor, error)
	Users(ctx context.Context) (Cursor, error)
}

// MongoSource reads the legacy collections from a MongoDB database.
type MongoSource struct {
	client   *mongo.Client
	database *mongo.Database
	policy   retry.Policy
}

// OpenMongo connects to uri and pings the server under policy. The
// database is the one named in the connection string.
func OpenMongo(ctx context.Context, uri string, policy retry.Policy) (*MongoSource, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing mongo url: %w", err)
	}
	if cs.Database == "" {
		return nil, errors.New("mongo url must name a database")
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetConnectTimeout(connectTimeout).
		SetMaxPoolSize(5)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	err = retry.Run(ctx, policy, func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &MongoSource{
		client:   client,
		database: client.Database(cs.Database),
		policy:   policy,
	}, nil
}

// Blogs returns every document of the blogs collection, oldest first.
func (s *MongoSource) Blogs(ctx context.Context) (Cursor, error) {
	return s.find(ctx, BlogsCollection, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// Users returns every document of the users collection.
func (s *MongoSource) Users(ctx context.Context) (Cursor, error) {
	return s.find(ctx, UsersCollection, options.Find())
}

func (s *MongoSource) find(ctx context.Context, collection string, opts *options.FindOptions) (Cursor, error) {
	cursor, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*mongo.Cursor, error) {
		return s.database.Collection(collection).Find(ctx, bson.M{}, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	return cursor, nil
}

// Close disconnects from the server.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
