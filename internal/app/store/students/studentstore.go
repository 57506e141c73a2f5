// internal/app/store/students/studentstore.go
package studentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/sparktrack/sparktrack/internal/app/system/paging"
	"github.com/sparktrack/sparktrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no student has the requested enrollment number.
var ErrNotFound = errors.New("student not found")

// Store is the eligible-student directory.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("students")}
}

// GetByEnrollment returns one directory record.
func (s *Store) GetByEnrollment(ctx context.Context, enrollment string) (models.Student, error) {
	var st models.Student
	err := s.c.FindOne(ctx, bson.M{"enrollment_no": enrollment}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Student{}, ErrNotFound
	}
	if err != nil {
		return models.Student{}, err
	}
	return st, nil
}

// FindByEnrollments returns the records that exist among ids. Missing ids
// are silently absent from the result.
func (s *Store) FindByEnrollments(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"enrollment_no": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Student{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFilter narrows List and CountFiltered.
type ListFilter struct {
	Class      string // exact class label; blank for every class
	NamePrefix string // case-insensitive full-name prefix; blank for any
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.Class != "" {
		q["class"] = f.Class
	}
	if fq := text.Fold(f.NamePrefix); fq != "" {
		q["full_name_ci"] = bson.M{"$gte": fq, "$lt": fq + "\uffff"}
	}
	return q
}

// List returns one keyset page of the directory in case-insensitive name
// order. It fetches paging.LimitPlusOne rows; pass the result through
// paging.Finish.
func (s *Store) List(ctx context.Context, f ListFilter, cfg paging.KeysetConfig) ([]models.Student, error) {
	filter := f.query()
	if ks := cfg.KeysetWindow("full_name_ci"); ks != nil {
		filter = bson.M{"$and": []bson.M{filter, ks}}
	}

	find := options.Find()
	cfg.ApplyToFind(find, "full_name_ci")

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Student{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountFiltered counts the records List would page through.
func (s *Store) CountFiltered(ctx context.Context, f ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// UpsertResult reports what UpsertMany changed.
type UpsertResult struct {
	Inserted int64
	Updated  int64
}

// UpsertMany inserts or refreshes directory records keyed by enrollment
// number in a single unordered bulk write.
func (s *Store) UpsertMany(ctx context.Context, students []models.Student) (UpsertResult, error) {
	if len(students) == 0 {
		return UpsertResult{}, nil
	}

	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(students))
	for _, st := range students {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"enrollment_no": st.EnrollmentNo}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"full_name":    st.FullName,
					"full_name_ci": text.Fold(st.FullName),
					"class":        st.Class,
					"contact":      st.Contact,
					"email":        st.Email,
					"updated_at":   now,
				},
				"$setOnInsert": bson.M{
					"_id":        primitive.NewObjectID(),
					"created_at": now,
				},
			}).
			SetUpsert(true))
	}

	res, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Inserted: res.UpsertedCount, Updated: res.ModifiedCount}, nil
}

// Count returns the directory size.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
