// Package datahub provides an embedded Go client for the datahub catalog
// core: the primary entity store, dedup-windowed counters, and the durable
// projection pipeline, without running the HTTP server.
//
//	client, _ := datahub.New(ctx, datahub.WithRedis("localhost:6379", ""))
//	defer client.Close()
//
//	e, _ := client.Catalog().Create(ctx, datahub.Entity{
//	    Kind:  "dataset",
//	    Title: "Air Quality 2025",
//	})
//	_ = client.Catalog().Download(ctx, e.ID, "viewer-1")
//
// Background workers drain the projection and enrichment queues for the
// lifetime of the client; Close stops them and releases the store.
package datahub
