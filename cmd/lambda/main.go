package main

import (
	"context"
	"log"

	"github.com/ammiranda/hierarchy_service/cache"
	"github.com/ammiranda/hierarchy_service/hierarchy"
	"github.com/ammiranda/hierarchy_service/internal/lambda"
	"github.com/ammiranda/hierarchy_service/store"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	// Lambda deployments use the in-memory store; swap in the Postgres
	// store once an RDS instance is provisioned for the stack.
	nodeStore := store.NewMemoryStore()
	if err := nodeStore.Initialize(ctx); err != nil {
		logger.Fatal("Failed to initialize node store", zap.Error(err))
	}

	if err := cache.Initialize(); err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}

	engine := hierarchy.NewEngine(nodeStore, logger)
	traversal := hierarchy.NewTraversal(nodeStore, logger)

	handler := lambda.NewHandler(engine, traversal)
	awslambda.Start(handler.Handle)
}
