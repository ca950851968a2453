// Package main hosts the projtrace CLI.
//
// Commands open an image together with its cached projection record, merge
// box and peak settings from a TOML file, run the pipeline and print the
// per-peak statistics. Results of every run are also appended to the SQLite
// results index so they can be listed across images later.
//
// Keep the commands thin: behaviour belongs in the internal packages and is
// only surfaced here.
package main
