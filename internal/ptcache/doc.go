// Package ptcache persists one infostore.Record per image next to the image
// itself, under <image dir>/<cache dir>/<image name>.info.
//
// Records are JSON tagged with the program version. A missing, unreadable or
// differently versioned file is treated as a cold start rather than an
// error, and no migration between versions is attempted. Writes are atomic
// and guarded by an advisory file lock so two processes never interleave
// on the same record.
package ptcache
