//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/faq-rag/internal/bootstrap"
	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/config"
	httpiface "github.com/yanqian/faq-rag/internal/interface/http"
	"github.com/yanqian/faq-rag/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideFAQConfig,
		provideChatGPTClient,
		provideTokenCounter,
		provideEmbedder,
		provideGenerator,
		providePostgresPool,
		provideSeed,
		provideRecordStore,
		provideMappingStore,
		provideVectorIndex,
		provideFAQStore,
		provideRecordCache,
		provideTrendingStore,
		faq.NewRetriever,
		faq.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
