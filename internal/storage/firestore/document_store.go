// Package firestore implements storage.DocumentStore over Cloud Firestore.
// The remote draw configuration lives at config/draw and the allow-list at
// whitelist/<address>.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/iskinnyufat-del/mc/internal/storage"
)

// DocumentStore reads single documents from Firestore.
type DocumentStore struct {
	client *firestore.Client
}

// NewDocumentStore wraps an existing Firestore client.
func NewDocumentStore(client *firestore.Client) *DocumentStore {
	return &DocumentStore{client: client}
}

// Connect creates a Firestore client for the project and wraps it.
// credentialsFile may be empty to use application default credentials.
func Connect(ctx context.Context, projectID, credentialsFile string) (*DocumentStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}

	return &DocumentStore{client: client}, nil
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

// GetDocument returns the document's fields.
func (s *DocumentStore) GetDocument(ctx context.Context, collection, doc string) (map[string]interface{}, error) {
	if collection == "" || doc == "" {
		return nil, storage.ErrInvalidInput
	}

	snap, err := s.client.Collection(collection).Doc(doc).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, doc, err)
	}

	if !snap.Exists() {
		return nil, storage.ErrNotFound
	}

	return snap.Data(), nil
}

// Close closes the underlying Firestore client.
func (s *DocumentStore) Close() error {
	return s.client.Close()
}
