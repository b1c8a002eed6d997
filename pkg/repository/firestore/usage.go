package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	firestorepb "cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/askemail/pkg/domain/types"
)

// usageDoc is one delivered reply. Only the sender address is stored, to
// enforce the daily rate limit.
type usageDoc struct {
	FromAddress string    `firestore:"FromAddress"`
	CreatedAt   time.Time `firestore:"CreatedAt"`
}

type usageRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newUsageRepository(client *firestore.Client) *usageRepository {
	return &usageRepository{client: client}
}

func (r *usageRepository) emailsCollection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "emails")
}

func (r *usageRepository) CountSince(ctx context.Context, email types.EmailAddress, since time.Time) (int64, error) {
	query := r.emailsCollection().
		Where("FromAddress", "==", email.String()).
		Where("CreatedAt", ">=", since)

	results, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count replies", goerr.V("email", email))
	}

	raw, ok := results["total"]
	if !ok {
		return 0, goerr.New("count aggregation returned no result", goerr.V("email", email))
	}

	value, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected aggregation result type", goerr.V("email", email))
	}

	return value.GetIntegerValue(), nil
}

func (r *usageRepository) RecordReply(ctx context.Context, email types.EmailAddress) error {
	doc := &usageDoc{
		FromAddress: email.String(),
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := r.emailsCollection().NewDoc().Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to record reply", goerr.V("email", email))
	}

	return nil
}
