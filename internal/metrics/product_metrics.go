package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProductsCreated counts products added to the catalog.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_created_total",
		Help: "The total number of products created",
	})

	// ProductsUpdated counts successful product updates.
	ProductsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_updated_total",
		Help: "The total number of products updated",
	})

	// ProductsDeleted counts products removed from the catalog.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_deleted_total",
		Help: "The total number of products deleted",
	})

	// ImagesStored counts images written to the blob store.
	ImagesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_images_stored_total",
		Help: "The total number of product images stored",
	})

	// BlobCleanupFailures counts best-effort image deletions that failed.
	BlobCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_blob_cleanup_failures_total",
		Help: "The total number of image deletions that failed and left an orphaned blob",
	})
)
