package live

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Watch returns an Opener over a collection change stream filtered by
// pipeline. Full documents are looked up on update so pipelines may match on
// fullDocument fields.
func Watch(coll *mongo.Collection, pipeline mongo.Pipeline) Opener {
	return func(ctx context.Context) (Stream, error) {
		if pipeline == nil {
			pipeline = mongo.Pipeline{}
		}
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		cs, err := coll.Watch(ctx, pipeline, opts)
		if err != nil {
			return nil, err
		}
		return cs, nil
	}
}

// WatchDatabase is Watch over every collection in db. Pipelines usually
// match on ns.coll to pick the collections of interest.
func WatchDatabase(db *mongo.Database, pipeline mongo.Pipeline) Opener {
	return func(ctx context.Context) (Stream, error) {
		if pipeline == nil {
			pipeline = mongo.Pipeline{}
		}
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		cs, err := db.Watch(ctx, pipeline, opts)
		if err != nil {
			return nil, err
		}
		return cs, nil
	}
}
