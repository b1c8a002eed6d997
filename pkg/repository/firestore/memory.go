package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// distanceField is where FindNearest writes the cosine distance of each hit.
const distanceField = "vector_distance"

// memoryDoc is the Firestore document representation of model.Memory.
// Embedding is stored as firestore.Vector32 for FindNearest vector search;
// records persisted before their embedding upsert simply lack the field and
// are invisible to similarity search.
type memoryDoc struct {
	ID        model.MemoryID     `firestore:"ID"`
	Email     string             `firestore:"Email"`
	Request   string             `firestore:"Request"`
	Content   string             `firestore:"Content"`
	Embedding firestore.Vector32 `firestore:"Embedding,omitempty"`
	CreatedAt time.Time          `firestore:"CreatedAt"`
}

func toMemoryDoc(m *model.Memory) *memoryDoc {
	doc := &memoryDoc{
		ID:        m.ID,
		Email:     m.Email.String(),
		Request:   m.Request,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(m.Embedding)
	}
	return doc
}

func fromMemoryDoc(d *memoryDoc) *model.Memory {
	m := &model.Memory{
		ID:        d.ID,
		Email:     types.EmailAddress(d.Email),
		Request:   d.Request,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
	if len(d.Embedding) > 0 {
		m.Embedding = []float32(d.Embedding)
	}
	return m
}

type memoryRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newMemoryRepository(client *firestore.Client) *memoryRepository {
	return &memoryRepository{client: client}
}

// memoriesCollection returns the per-sender subcollection:
// senders/{email}/memories. The document path is the namespace boundary.
func (r *memoryRepository) memoriesCollection(email types.EmailAddress) *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix+"senders").
		Doc(email.String()).
		Collection("memories")
}

func (r *memoryRepository) Create(ctx context.Context, email types.EmailAddress, mem *model.Memory) (*model.Memory, error) {
	if mem.ID == "" {
		mem.ID = model.NewMemoryID()
	}
	mem.Email = email
	mem.CreatedAt = time.Now().UTC()

	docRef := r.memoriesCollection(email).Doc(string(mem.ID))
	if _, err := docRef.Set(ctx, toMemoryDoc(mem)); err != nil {
		return nil, goerr.Wrap(err, "failed to create memory", goerr.V("email", email))
	}

	return mem, nil
}

func (r *memoryRepository) SetEmbedding(ctx context.Context, email types.EmailAddress, id model.MemoryID, embedding []float32) error {
	docRef := r.memoriesCollection(email).Doc(string(id))

	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "Embedding", Value: firestore.Vector32(embedding)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("memoryID", id))
		}
		return goerr.Wrap(err, "failed to set memory embedding", goerr.V("memoryID", id))
	}

	return nil
}

func (r *memoryRepository) GetByIDs(ctx context.Context, email types.EmailAddress, ids []model.MemoryID) ([]*model.Memory, error) {
	memories := make([]*model.Memory, 0, len(ids))

	for _, id := range ids {
		doc, err := r.memoriesCollection(email).Doc(string(id)).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return nil, goerr.Wrap(err, "failed to get memory", goerr.V("memoryID", id))
		}

		var d memoryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory", goerr.V("memoryID", id))
		}

		memories = append(memories, fromMemoryDoc(&d))
	}

	return memories, nil
}

func (r *memoryRepository) FindByEmbedding(ctx context.Context, email types.EmailAddress, embedding []float32, limit int) ([]*model.MemoryMatch, error) {
	vq := r.memoriesCollection(email).FindNearest(
		"Embedding",
		firestore.Vector32(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{
			DistanceResultField: distanceField,
		},
	)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	matches := make([]*model.MemoryMatch, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory vector search results")
		}

		var d memoryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory from vector search")
		}

		// Cosine distance to similarity score
		score := 1.0
		if raw, err := doc.DataAt(distanceField); err == nil {
			if dist, ok := raw.(float64); ok {
				score = 1.0 - dist
			}
		}

		matches = append(matches, &model.MemoryMatch{
			Memory: fromMemoryDoc(&d),
			Score:  score,
		})
	}

	return matches, nil
}
