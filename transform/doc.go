// Package transform rewrites GTFS datasets through an ordered pipeline of
// strategies.
//
// # Overview
//
// A Strategy mutates a gtfs.Dataset in place. A Transformer runs strategies
// in order, wrapping each one in a span and recording prometheus metrics.
// Strategies are looked up by name from a registry so that the pipeline can
// be described in configuration:
//
//	strategies, err := transform.NewStrategies([]string{"compact_ids"})
//	if err != nil {
//	    return err
//	}
//	t := transform.New(transform.WithLogger(logger))
//	t.AddStrategy(strategies...)
//	if err := t.Run(ctx, ds); err != nil {
//	    return err
//	}
//
// # Compact ids
//
// CompactIDsStrategy renames every identifier to a short sequential value:
//
//	agencies          a0, a1, ...
//	routes            r0, r1, ...
//	trips             t0, t1, ...
//	stops             s0, s1, ...
//	service ids       c0, c1, ...   (calendars, then calendar dates, then trips)
//	shape ids         sh0, sh1, ... (shape points, then trips)
//
// Routes, trips and stops are numbered by position in the dataset. Service
// and shape ids are numbered on first sight, so every reference to the same
// old id receives the same new one. The dataset is reindexed at the end.
//
// # Errors
//
// A failing strategy is reported as *StrategyError; earlier strategies are not
// undone.
package transform
