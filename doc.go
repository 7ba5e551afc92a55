// Package esmirror provides a Go client for an Elasticsearch-style search service
// that keeps a local mirror of every document it has written.
//
// Reads and searches are checked against the mirror before any request is sent:
// a document this client never wrote is rejected with ErrInvalidState even if
// it exists remotely.
//
//	client, _ := esmirror.New(ctx, esmirror.WithURL("http://localhost:9200"))
//	defer client.Close()
//
//	_, _ = client.Put(ctx, "ads", "car", 1, map[string]any{"make": "volvo"})
//	ids, _ := client.PutRecords(ctx, "ads", "car", []esmirror.Record{{"make": "saab"}})
//	res, _ := client.SimpleSearch(ctx, "ads", "car", "make:saab")
//
// Bulk data can be loaded from a JSON file shaped {index: {type: [record, ...]}}:
//
//	stats, err := client.Load(ctx, "ads.json")
package esmirror
