package storage

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"todo-api/domain"
)

// Mongo stores tasks as documents addressed by their "id" field. The driver's
// own "_id" is never exposed.
type Mongo struct {
	client *mongo.Client
	tasks  *mongo.Collection
}

// NewMongo connects to the given deployment. The client is shared by every
// request until Close.
func NewMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	if uri == "" || database == "" {
		return nil, errors.New("missing mongo config")
	}
	if collection == "" {
		collection = "tasks"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"database": database, "collection": collection}).Info("mongo client connected")
	return &Mongo{client: client, tasks: client.Database(database).Collection(collection)}, nil
}

type mongoTask struct {
	ID        string `bson:"id"`
	Text      string `bson:"text"`
	Completed bool   `bson:"completed"`
	Order     int    `bson:"order"`
	CreatedAt any    `bson:"created_at"`
}

var withoutObjectID = bson.D{{Key: "_id", Value: 0}}

func (s *Mongo) ListTasks(ctx context.Context) ([]domain.TaskDocument, error) {
	cur, err := s.tasks.Find(ctx, bson.D{}, options.Find().SetProjection(withoutObjectID))
	if err != nil {
		return nil, err
	}
	var rows []mongoTask
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	docs := make([]domain.TaskDocument, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.document())
	}
	return docs, nil
}

func (s *Mongo) GetTask(ctx context.Context, id string) (*domain.TaskDocument, error) {
	var row mongoTask
	err := s.tasks.FindOne(ctx, bson.M{"id": id}, options.FindOne().SetProjection(withoutObjectID)).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	doc := row.document()
	return &doc, nil
}

func (s *Mongo) InsertTask(ctx context.Context, doc domain.TaskDocument) error {
	row, err := newMongoTask(doc)
	if err != nil {
		return err
	}
	_, err = s.tasks.InsertOne(ctx, row)
	return err
}

func (s *Mongo) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error {
	set := setFields(patch)
	if len(set) == 0 {
		return nil
	}
	_, err := s.tasks.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	return err
}

func (s *Mongo) DeleteTask(ctx context.Context, id string) (int64, error) {
	res, err := s.tasks.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Mongo) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Mongo) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func newMongoTask(doc domain.TaskDocument) (mongoTask, error) {
	created, err := domain.ParseCreatedAt(doc.CreatedAt)
	if err != nil {
		return mongoTask{}, err
	}
	return mongoTask{
		ID:        doc.ID,
		Text:      doc.Text,
		Completed: doc.Completed,
		Order:     doc.Order,
		CreatedAt: domain.FormatTime(created),
	}, nil
}

// document converts a row for the domain; BSON dates become time.Time.
func (r mongoTask) document() domain.TaskDocument {
	created := r.CreatedAt
	switch v := created.(type) {
	case primitive.DateTime:
		created = v.Time().UTC()
	case primitive.Timestamp:
		created = primitive.DateTime(int64(v.T) * 1000).Time().UTC()
	}
	return domain.TaskDocument{
		ID:        r.ID,
		Text:      r.Text,
		Completed: r.Completed,
		Order:     r.Order,
		CreatedAt: created,
	}
}

func setFields(patch domain.TaskPatch) bson.M {
	set := bson.M{}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if patch.Order != nil {
		set["order"] = *patch.Order
	}
	return set
}
