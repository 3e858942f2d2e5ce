package main

import (
	"context"
	"log"

	"github.com/ammiranda/hierarchy_service/cache"
	"github.com/ammiranda/hierarchy_service/config"
	"github.com/ammiranda/hierarchy_service/handlers"
	"github.com/ammiranda/hierarchy_service/hierarchy"
	"github.com/ammiranda/hierarchy_service/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	// Initialize config provider
	cfgProvider := config.NewEnvProvider("")

	// Initialize node store
	nodeStore, err := newStore(cfgProvider)
	if err != nil {
		logger.Fatal("Failed to create node store", zap.Error(err))
	}
	if err := nodeStore.Initialize(ctx); err != nil {
		logger.Fatal("Failed to initialize node store", zap.Error(err))
	}
	defer nodeStore.Cleanup(ctx)

	// Initialize cache
	if err := cache.Initialize(); err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}

	// Initialize engine and traversal services
	engine := hierarchy.NewEngine(nodeStore, logger)
	traversal := hierarchy.NewTraversal(nodeStore, logger)

	// Initialize handlers
	handler := handlers.NewHierarchyHandler(engine, traversal, logger)

	// Initialize router
	r := gin.Default()
	handler.Register(r.Group("/api"))

	// Start server
	if err := r.Run(":8080"); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// newStore picks the store backend from configuration.
func newStore(cfgProvider config.Provider) (store.Store, error) {
	switch config.GetStoreDriver(context.Background(), cfgProvider) {
	case config.DriverSQLite:
		return store.NewSQLiteStore(), nil
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	default:
		return store.NewPostgresStore(cfgProvider)
	}
}
