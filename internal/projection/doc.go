// Package projection runs the box projection pipeline for one image.
//
// Process merges caller settings into the image's infostore.Record and then
// computes, lazily and in order, the raw histograms, convex-hull adjusted
// histograms, model fits, background-subtracted histograms, moved peaks,
// baselines and centroid/width summaries. Only artifacts missing from the
// record are computed, so repeating a call with unchanged settings does no
// fitting at all. The record is saved through ptcache at the end of every
// call when a cache is attached.
//
// A Processor is not safe for concurrent use; run one per image.
package projection
