package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/askemail/pkg/domain/interfaces"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/types"
	"github.com/secmon-lab/askemail/pkg/repository/firestore"
	"github.com/secmon-lab/askemail/pkg/repository/memory"
)

const testSender = types.EmailAddress("a@x.com")

func runMemoryRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create assigns UUID and timestamp", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Memory().Create(ctx, testSender, &model.Memory{
			Request: "remember my flight is AB123",
			Content: "flight AB123",
		})
		gt.NoError(t, err).Required()

		gt.String(t, string(created.ID)).NotEqual("")
		gt.Value(t, created.Email).Equal(testSender)
		gt.Value(t, created.Request).Equal("remember my flight is AB123")
		gt.Value(t, created.Content).Equal("flight AB123")
		gt.Bool(t, created.CreatedAt.IsZero()).False()
	})

	t.Run("SetEmbedding indexes an existing record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Memory().Create(ctx, testSender, &model.Memory{
			Request: "remember the wifi password",
			Content: "wifi password hunter2",
		})
		gt.NoError(t, err).Required()

		emb := make([]float32, model.EmbeddingDimension)
		emb[0] = 1.0
		gt.NoError(t, repo.Memory().SetEmbedding(ctx, testSender, created.ID, emb)).Required()

		matches, err := repo.Memory().FindByEmbedding(ctx, testSender, emb, 3)
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(1)
		gt.Value(t, matches[0].Memory.ID).Equal(created.ID)
		gt.Bool(t, matches[0].Score > 0.99).True()
	})

	t.Run("SetEmbedding returns error for non-existent record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		emb := make([]float32, model.EmbeddingDimension)
		err := repo.Memory().SetEmbedding(ctx, testSender, "non-existent-id", emb)
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, memory.ErrNotFound) || errors.Is(err, firestore.ErrNotFound)).True()
	})

	t.Run("Unindexed record is invisible to similarity search", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Memory().Create(ctx, testSender, &model.Memory{
			Request: "remember this",
			Content: "record without embedding",
		})
		gt.NoError(t, err).Required()

		query := make([]float32, model.EmbeddingDimension)
		query[0] = 1.0
		matches, err := repo.Memory().FindByEmbedding(ctx, testSender, query, 3)
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(0)
	})

	t.Run("FindByEmbedding orders by descending similarity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		dim := model.EmbeddingDimension

		similar := make([]float32, dim)
		similar[0] = 0.9
		similar[1] = 0.1
		mSimilar, err := repo.Memory().Create(ctx, testSender, &model.Memory{Content: "similar"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Memory().SetEmbedding(ctx, testSender, mSimilar.ID, similar)).Required()

		dissimilar := make([]float32, dim)
		dissimilar[1] = 0.9
		mDissimilar, err := repo.Memory().Create(ctx, testSender, &model.Memory{Content: "dissimilar"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Memory().SetEmbedding(ctx, testSender, mDissimilar.ID, dissimilar)).Required()

		exact := make([]float32, dim)
		exact[0] = 1.0
		mExact, err := repo.Memory().Create(ctx, testSender, &model.Memory{Content: "exact"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Memory().SetEmbedding(ctx, testSender, mExact.ID, exact)).Required()

		query := make([]float32, dim)
		query[0] = 1.0
		matches, err := repo.Memory().FindByEmbedding(ctx, testSender, query, 2)
		gt.NoError(t, err).Required()

		gt.Array(t, matches).Length(2)
		gt.Value(t, matches[0].Memory.Content).Equal("exact")
		gt.Value(t, matches[1].Memory.Content).Equal("similar")
		gt.Bool(t, matches[0].Score >= matches[1].Score).True()
	})

	t.Run("Namespace isolation between senders", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		other := types.EmailAddress("b@y.com")

		emb := make([]float32, model.EmbeddingDimension)
		emb[0] = 1.0

		created, err := repo.Memory().Create(ctx, testSender, &model.Memory{Content: "flight AB123"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Memory().SetEmbedding(ctx, testSender, created.ID, emb)).Required()

		matches, err := repo.Memory().FindByEmbedding(ctx, other, emb, 3)
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(0)

		hydrated, err := repo.Memory().GetByIDs(ctx, other, []model.MemoryID{created.ID})
		gt.NoError(t, err).Required()
		gt.Array(t, hydrated).Length(0)
	})

	t.Run("GetByIDs preserves requested order and skips missing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		m1, err := repo.Memory().Create(ctx, testSender, &model.Memory{Content: "first"})
		gt.NoError(t, err).Required()
		m2, err := repo.Memory().Create(ctx, testSender, &model.Memory{Content: "second"})
		gt.NoError(t, err).Required()

		hydrated, err := repo.Memory().GetByIDs(ctx, testSender, []model.MemoryID{m2.ID, "missing-id", m1.ID})
		gt.NoError(t, err).Required()
		gt.Array(t, hydrated).Length(2)
		gt.Value(t, hydrated[0].Content).Equal("second")
		gt.Value(t, hydrated[1].Content).Equal("first")
	})

	t.Run("Large embedding vector is preserved", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		embedding := make([]float32, model.EmbeddingDimension)
		for i := range embedding {
			embedding[i] = float32(i) / float32(model.EmbeddingDimension)
		}

		created, err := repo.Memory().Create(ctx, testSender, &model.Memory{Content: "large embedding"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Memory().SetEmbedding(ctx, testSender, created.ID, embedding)).Required()

		matches, err := repo.Memory().FindByEmbedding(ctx, testSender, embedding, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(1)
		gt.Array(t, matches[0].Memory.Embedding).Length(model.EmbeddingDimension)
	})
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	ctx := context.Background()
	prefix := "test-" + time.Now().UTC().Format("20060102150405") + "-"
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	gt.NoError(t, err).Required()

	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Logf("failed to close firestore repository: %v", err)
		}
	})

	return repo
}

func TestMemoryRepository_Memory(t *testing.T) {
	runMemoryRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestMemoryRepository_Firestore(t *testing.T) {
	runMemoryRepositoryTest(t, newFirestoreRepository)
}
