package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema checks that the Course class exists and creates it if not.
// Vectors are supplied by the application (embedder), not by Weaviate.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	className := "Course"
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "courseCode",
			DataType: []string{"string"}, // exact match, e.g. "CS341"
		},
		{
			Name:     "courseName",
			DataType: []string{"text"},
		},
		{
			Name:     "courseDescription",
			DataType: []string{"text"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "A university course from the catalog",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	// Class exists, check for missing properties
	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}
