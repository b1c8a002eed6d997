package usecase

import (
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/askemail/pkg/domain/interfaces"
	"github.com/secmon-lab/askemail/pkg/domain/model/config"
)

type UseCases struct {
	repo      interfaces.Repository
	llmClient gollem.LLMClient
	transport interfaces.Transport
	cfg       *config.Pipeline
}

type Option func(*UseCases)

func WithPipelineConfig(cfg *config.Pipeline) Option {
	return func(uc *UseCases) {
		uc.cfg = cfg
	}
}

func New(repo interfaces.Repository, llmClient gollem.LLMClient, transport interfaces.Transport, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:      repo,
		llmClient: llmClient,
		transport: transport,
		cfg:       config.NewPipeline(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
