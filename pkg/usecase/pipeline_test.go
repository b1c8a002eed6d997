package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/askemail/pkg/domain/interfaces"
	"github.com/secmon-lab/askemail/pkg/domain/model"
	"github.com/secmon-lab/askemail/pkg/domain/model/config"
	"github.com/secmon-lab/askemail/pkg/domain/types"
	"github.com/secmon-lab/askemail/pkg/repository/memory"
	"github.com/secmon-lab/askemail/pkg/usecase"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{
		Texts: []string{"This is a test answer."},
	}, nil
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.GenerateStream(ctx, input...)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	sessionStarted    bool
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	c.sessionStarted = true
	return &mockLLMSession{generateContentFn: c.generateContentFn}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

// captureTransport records the last delivered message.
type captureTransport struct {
	raw      []byte
	from, to string
	sends    int
	err      error
}

func (t *captureTransport) Send(ctx context.Context, raw []byte, from, to string) error {
	if t.err != nil {
		return t.err
	}
	t.raw = raw
	t.from = from
	t.to = to
	t.sends++
	return nil
}

func (t *captureTransport) Name() string { return "capture" }

func newPipelineConfig() *config.Pipeline {
	cfg := config.NewPipeline()
	cfg.FromAddress = "ask@askemail.dev"
	return cfg
}

func testEmail() *model.InboundEmail {
	return &model.InboundEmail{
		From:      "alice@example.com",
		FromName:  "Alice",
		Subject:   "flight",
		Body:      "what is my flight number?",
		MessageID: "<msg-1@example.com>",
		Date:      time.Now().UTC(),
	}
}

func countToday(t *testing.T, repo interfaces.Repository, sender types.EmailAddress) int64 {
	t.Helper()
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, err := repo.Usage().CountSince(context.Background(), sender, start)
	gt.NoError(t, err).Required()
	return count
}

func TestHandleEmail(t *testing.T) {
	t.Run("delivers the model answer and increments the counter once", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{}
		transport := &captureTransport{}
		uc := usecase.New(repo, llm, transport, usecase.WithPipelineConfig(newPipelineConfig()))

		gt.NoError(t, uc.HandleEmail(context.Background(), testEmail())).Required()

		gt.Value(t, transport.sends).Equal(1)
		gt.Value(t, transport.from).Equal("ask@askemail.dev")
		gt.Value(t, transport.to).Equal("alice@example.com")

		raw := string(transport.raw)
		gt.Value(t, strings.Contains(raw, "Subject: RE: flight")).Equal(true)
		gt.Value(t, strings.Contains(raw, "This is a test answer.")).Equal(true)
		gt.Value(t, strings.Contains(raw, "In-Reply-To: <msg-1@example.com>")).Equal(true)

		gt.Value(t, countToday(t, repo, "alice@example.com")).Equal(int64(1))
	})

	t.Run("renders the markdown answer to HTML", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return &gollem.Response{Texts: []string{"## Hello\n\nflight is **AB123**"}}, nil
			},
		}
		transport := &captureTransport{}
		uc := usecase.New(repo, llm, transport, usecase.WithPipelineConfig(newPipelineConfig()))

		gt.NoError(t, uc.HandleEmail(context.Background(), testEmail())).Required()

		raw := string(transport.raw)
		gt.Value(t, strings.Contains(raw, "<h2>Hello</h2>")).Equal(true)
		gt.Value(t, strings.Contains(raw, "<strong>AB123</strong>")).Equal(true)
	})

	t.Run("over the limit sends the fixed notice without inference", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		for i := 0; i < 11; i++ {
			gt.NoError(t, repo.Usage().RecordReply(ctx, "alice@example.com")).Required()
		}

		llm := &mockLLMClient{}
		transport := &captureTransport{}
		uc := usecase.New(repo, llm, transport, usecase.WithPipelineConfig(newPipelineConfig()))

		gt.NoError(t, uc.HandleEmail(ctx, testEmail())).Required()

		gt.Bool(t, llm.sessionStarted).False()
		raw := string(transport.raw)
		gt.Value(t, strings.Contains(raw, "Subject: You just reached today's limit for AskEmail :(")).Equal(true)
		gt.Value(t, strings.Contains(raw, "this will reset today at midnight UTC")).Equal(true)

		// A limited reply never increments the counter.
		gt.Value(t, countToday(t, repo, "alice@example.com")).Equal(int64(11))
	})

	t.Run("at the limit the sender still gets a normal answer", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		for i := 0; i < 10; i++ {
			gt.NoError(t, repo.Usage().RecordReply(ctx, "alice@example.com")).Required()
		}

		llm := &mockLLMClient{}
		transport := &captureTransport{}
		uc := usecase.New(repo, llm, transport, usecase.WithPipelineConfig(newPipelineConfig()))

		gt.NoError(t, uc.HandleEmail(ctx, testEmail())).Required()

		gt.Bool(t, llm.sessionStarted).True()
		gt.Value(t, strings.Contains(string(transport.raw), "RE: flight")).Equal(true)
		gt.Value(t, countToday(t, repo, "alice@example.com")).Equal(int64(11))
	})

	t.Run("delivery failure aborts and never increments", func(t *testing.T) {
		repo := memory.New()
		llm := &mockLLMClient{}
		transport := &captureTransport{err: errors.New("connection refused")}
		uc := usecase.New(repo, llm, transport, usecase.WithPipelineConfig(newPipelineConfig()))

		err := uc.HandleEmail(context.Background(), testEmail())
		gt.Bool(t, errors.Is(err, usecase.ErrDeliveryFailed)).True()
		gt.Value(t, countToday(t, repo, "alice@example.com")).Equal(int64(0))
	})

	t.Run("count query failure sends nothing", func(t *testing.T) {
		repo := &failingUsageRepo{Repository: memory.New()}
		llm := &mockLLMClient{}
		transport := &captureTransport{}
		uc := usecase.New(repo, llm, transport, usecase.WithPipelineConfig(newPipelineConfig()))

		err := uc.HandleEmail(context.Background(), testEmail())
		gt.Value(t, err).NotNil()
		gt.Value(t, transport.sends).Equal(0)
		gt.Bool(t, llm.sessionStarted).False()
	})

	t.Run("counter update failure does not fail a delivered reply", func(t *testing.T) {
		repo := &recordFailRepo{Repository: memory.New()}
		llm := &mockLLMClient{}
		transport := &captureTransport{}
		uc := usecase.New(repo, llm, transport, usecase.WithPipelineConfig(newPipelineConfig()))

		gt.NoError(t, uc.HandleEmail(context.Background(), testEmail())).Required()
		gt.Value(t, transport.sends).Equal(1)
	})
}

// failingUsageRepo makes every usage query fail.
type failingUsageRepo struct {
	interfaces.Repository
}

func (r *failingUsageRepo) Usage() interfaces.UsageRepository {
	return &failingUsage{}
}

type failingUsage struct{}

func (u *failingUsage) CountSince(ctx context.Context, email types.EmailAddress, since time.Time) (int64, error) {
	return 0, errors.New("usage store unavailable")
}

func (u *failingUsage) RecordReply(ctx context.Context, email types.EmailAddress) error {
	return errors.New("usage store unavailable")
}

// recordFailRepo counts fine but fails to record new replies.
type recordFailRepo struct {
	interfaces.Repository
}

func (r *recordFailRepo) Usage() interfaces.UsageRepository {
	return &recordFailUsage{inner: r.Repository.Usage()}
}

type recordFailUsage struct {
	inner interfaces.UsageRepository
}

func (u *recordFailUsage) CountSince(ctx context.Context, email types.EmailAddress, since time.Time) (int64, error) {
	return u.inner.CountSince(ctx, email, since)
}

func (u *recordFailUsage) RecordReply(ctx context.Context, email types.EmailAddress) error {
	return errors.New("usage store unavailable")
}
