package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"coursepilot/backend/internal/retrieval"
	"coursepilot/backend/internal/vector"
)

const className = "Course"

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

func (s *Store) StoreCourse(ctx context.Context, course retrieval.Course, vector []float32) error {
	_, err := s.client.Data().Creator().
		WithClassName(className).
		WithProperties(map[string]interface{}{
			"courseCode":        course.Code,
			"courseName":        course.Name,
			"courseDescription": course.Description,
		}).
		WithVector(vector).
		Do(ctx)
	return err
}

func (s *Store) DeleteByCode(ctx context.Context, code string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"courseCode"}).
			WithOperator(filters.Equal).
			WithValueString(code)).
		Do(ctx)
	return err
}

// Search runs a nearVector query and maps certainty onto the [0,1]
// relevance score. Results are not guaranteed sorted; callers re-sort.
func (s *Store) Search(ctx context.Context, query string, vector []float32, limit int) ([]retrieval.Course, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := []graphql.Field{
		{Name: "courseCode"},
		{Name: "courseName"},
		{Name: "courseDescription"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var courses []retrieval.Course
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if items, ok := data[className].([]interface{}); ok {
			for _, item := range items {
				props, ok := item.(map[string]interface{})
				if !ok {
					continue
				}

				var course retrieval.Course
				if code, ok := props["courseCode"].(string); ok {
					course.Code = code
				}
				if name, ok := props["courseName"].(string); ok {
					course.Name = name
				}
				if desc, ok := props["courseDescription"].(string); ok {
					course.Description = desc
				}

				if additional, ok := props["_additional"].(map[string]interface{}); ok {
					// Certainty decodes as float64 from JSON, but some
					// client versions hand it back as a string.
					switch c := additional["certainty"].(type) {
					case float64:
						course.Score = c
					case string:
						var f float64
						fmt.Sscanf(c, "%f", &f)
						course.Score = f
					}
				}

				courses = append(courses, course)
			}
		}
	}

	return courses, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	fields := []graphql.Field{
		{Name: "meta", Fields: []graphql.Field{{Name: "count"}}},
	}

	res, err := s.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if items, ok := data[className].([]interface{}); ok && len(items) > 0 {
			if props, ok := items[0].(map[string]interface{}); ok {
				if meta, ok := props["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
