package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
)

// MongoStore maps the path namespace onto a single collection. The first two
// path segments form the document id (a lone segment, such as
// "assetCategories", is a document of its own); the remaining segments become
// a dotted field path inside that document.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func splitPath(path string) (docID string, fields []string, err error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for _, s := range segs {
		if s == "" || strings.ContainsRune(s, '.') {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	if len(segs) == 1 {
		return segs[0], nil, nil
	}
	return segs[0] + "/" + segs[1], segs[2:], nil
}

func (s *MongoStore) Fetch(ctx context.Context, path string, out any) error {
	docID, fields, err := splitPath(path)
	if err != nil {
		return err
	}
	var raw bson.Raw
	if err := s.col.FindOne(ctx, bson.M{"_id": docID}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return decodeDoc(raw, fields, out)
}

// decodeDoc resolves fields inside a stored document, or decodes the whole
// document. The _id element is the upsert filter's bookkeeping, not part of
// the stored value, so whole-document decodes strip it.
func decodeDoc(raw bson.Raw, fields []string, out any) error {
	if len(fields) > 0 {
		rv, err := raw.LookupErr(fields...)
		if err != nil {
			return ErrNotFound
		}
		return rv.Unmarshal(out)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}
	trimmed := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if e.Key == "_id" {
			continue
		}
		trimmed = append(trimmed, e)
	}
	data, err := bson.Marshal(trimmed)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, out)
}

func (s *MongoStore) Set(ctx context.Context, path string, value any) error {
	docID, fields, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		_, err = s.col.ReplaceOne(ctx, bson.M{"_id": docID}, value, options.Replace().SetUpsert(true))
		return err
	}
	field := strings.Join(fields, ".")
	_, err = s.col.UpdateOne(ctx, bson.M{"_id": docID},
		bson.M{"$set": bson.M{field: value}}, options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) Update(ctx context.Context, path string, partial map[string]any) error {
	docID, fields, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(partial) == 0 {
		return nil
	}
	prefix := ""
	if len(fields) > 0 {
		prefix = strings.Join(fields, ".") + "."
	}
	set := bson.M{}
	unset := bson.M{}
	for k, v := range partial {
		if v == nil {
			unset[prefix+k] = ""
		} else {
			set[prefix+k] = v
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	_, err = s.col.UpdateOne(ctx, bson.M{"_id": docID}, update, options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) Remove(ctx context.Context, path string) error {
	docID, fields, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		_, err = s.col.DeleteOne(ctx, bson.M{"_id": docID})
		return err
	}
	field := strings.Join(fields, ".")
	_, err = s.col.UpdateOne(ctx, bson.M{"_id": docID}, bson.M{"$unset": bson.M{field: ""}})
	return err
}

func (s *MongoStore) PushChild(string) string {
	return uuid.NewString()
}

func (s *MongoStore) MultiUpdate(ctx context.Context, updates map[string]any) error {
	var errs error
	for path, value := range updates {
		var err error
		if value == nil {
			err = s.Remove(ctx, path)
		} else {
			err = s.Set(ctx, path, value)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errs
}
