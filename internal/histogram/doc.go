// Package histogram provides the 1-D signal helpers used by the projection
// pipeline: convex-hull background removal, local peak refinement and the
// baseline-crossing statistics (centroid and width) reported per peak.
package histogram
