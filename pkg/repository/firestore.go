package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/omnitech/supportagent/pkg/adapter"
	"github.com/omnitech/supportagent/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultCollection = "knowledge"

// Firestore is a Knowledge implementation backed by Firestore vector search.
// Documents carry a precomputed embedding; queries are embedded at search
// time with the same model.
type Firestore struct {
	client     *firestore.Client
	embedder   adapter.Embedder
	collection string
}

type knowledgeDoc struct {
	Content   string             `firestore:"content"`
	Source    string             `firestore:"source"`
	Embedding firestore.Vector32 `firestore:"embedding"`
}

type FirestoreOption func(*Firestore)

func WithCollection(name string) FirestoreOption {
	return func(f *Firestore) {
		f.collection = name
	}
}

// NewFirestore creates a Firestore-backed knowledge store
func NewFirestore(ctx context.Context, projectID, databaseID string, embedder adapter.Embedder, opts ...FirestoreOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required")
	}
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	f := &Firestore{
		client:     client,
		embedder:   embedder,
		collection: defaultCollection,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Put stores a document with its embedding
func (f *Firestore) Put(ctx context.Context, doc *Document) error {
	vec, err := f.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return goerr.Wrap(err, "failed to embed document", goerr.V("id", doc.ID))
	}

	_, err = f.client.Collection(f.collection).Doc(doc.ID).Set(ctx, &knowledgeDoc{
		Content:   doc.Content,
		Source:    doc.Source,
		Embedding: firestore.Vector32(vec),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put document", goerr.V("id", doc.ID))
	}
	return nil
}

// Get retrieves a stored document by ID
func (f *Firestore) Get(ctx context.Context, id string) (*Document, error) {
	snap, err := f.client.Collection(f.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.New("document not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("id", id))
	}

	var doc knowledgeDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode document", goerr.V("id", id))
	}

	return &Document{ID: snap.Ref.ID, Content: doc.Content, Source: doc.Source}, nil
}

// Search embeds the query and runs a nearest-neighbor lookup
func (f *Firestore) Search(ctx context.Context, query string, limit int) ([]*model.KnowledgeSnippet, error) {
	if limit <= 0 {
		limit = 5
	}

	vec, err := f.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	vq := f.client.Collection(f.collection).FindNearest(
		"embedding",
		firestore.Vector32(vec),
		limit,
		firestore.DistanceMeasureCosine,
		nil,
	)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var snippets []*model.KnowledgeSnippet
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate search results")
		}

		var doc knowledgeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode search result", goerr.V("id", snap.Ref.ID))
		}
		snippets = append(snippets, &model.KnowledgeSnippet{
			Content: doc.Content,
			Source:  doc.Source,
		})
	}

	return snippets, nil
}

// Close releases the Firestore client
func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}
