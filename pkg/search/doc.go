// Package search implements course-scoped free-text search over the content
// of many independent activity types.
//
// A search runs in three steps. The [Aggregator] validates the course and
// takes one snapshot of its activity placements. It then fans the term out
// to every registered [Adapter] concurrently. Each adapter asks its [Gate]
// whether its activity type is installed, issues one literal, case-insensitive
// substring query through the [Store], drops rows whose placement is not
// viewable, and normalizes the rest into [api.Result] values. Results are
// concatenated in adapter registration order, so the output is deterministic
// for a fixed data set.
//
// A failing or slow adapter contributes nothing and never fails the search.
//
// The ten built-in content sources are declared in [DefaultSources]; each
// is a [Source] describing which columns to read and match, how to order
// rows, and how to compose titles and links. [NewSourceAdapter] turns a
// Source into an Adapter, so adding a content type is a data change.
package search
