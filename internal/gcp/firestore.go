package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/geminiocr/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// RunRecorder stores one document per batch run.
type RunRecorder struct {
	client     *firestore.Client
	collection string
}

// NewRunRecorder creates a recorder writing into collection.
func NewRunRecorder(ctx context.Context, projectID, collection string) (*RunRecorder, error) {
	if collection == "" {
		return nil, fmt.Errorf("firestore collection must be provided")
	}
	client, err := NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &RunRecorder{client: client, collection: collection}, nil
}

// Record writes the run under its run ID, replacing any earlier record.
func (r *RunRecorder) Record(ctx context.Context, run models.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("run ID must be set")
	}
	if _, err := r.client.Collection(r.collection).Doc(run.RunID).Set(ctx, run); err != nil {
		return fmt.Errorf("failed to store run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *RunRecorder) Close() error {
	return r.client.Close()
}
