package cmd

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/florahub/services/plants/cache"
	"example.com/florahub/services/plants/eventstore"
	"example.com/florahub/services/plants/models"
	"example.com/florahub/services/plants/projections"
	"example.com/florahub/services/plants/search"
)

// openDatabase connects to Postgres and migrates the event store and
// read model tables
func openDatabase() *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access database pool")
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	err = db.AutoMigrate(
		&models.Event{},
		&models.ProjectorAppliedEvent{},
		&models.Plant{},
		&models.PlantTimelineEntry{},
		&models.RequestQueueEntry{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	return db
}

// buildSearch creates the Elasticsearch client when it is enabled
func buildSearch() *search.ElasticClient {
	if !cfg.Elastic.Enabled {
		return nil
	}

	esClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Elasticsearch")
	}
	return esClient
}

// buildCache creates the Redis cache; a disabled config yields a pass-through
func buildCache() *cache.RedisCache {
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis")
	}
	return redisCache
}

// buildRunner wires the projectors in their fixed order: the plant read model
// is written before the projectors that may reference it
func buildRunner(db *gorm.DB, store eventstore.EventStore, esClient *search.ElasticClient, redisCache *cache.RedisCache) *projections.Runner {
	var indexer projections.SearchIndexer
	if esClient != nil {
		indexer = esClient
	}
	var invalidator projections.CacheInvalidator
	if redisCache != nil && redisCache.Enabled() {
		invalidator = redisCache
	}

	applied := projections.NewGormAppliedLog(db)
	projectors := []projections.Projector{
		projections.NewPlantProjector(db, indexer, invalidator),
		projections.NewTimelineProjector(db),
		projections.NewRequestQueueProjector(db),
	}

	return projections.NewRunner(store, applied, projectors, cfg.Projections.BatchSize)
}
