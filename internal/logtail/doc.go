// Package logtail reads and decodes the tail of trolley's log file for the
// in-app log pane.
//
// # Reading Log Files
//
// Read uses a ring buffer of size maxLines, so memory stays O(maxLines)
// regardless of file size, and returns lines oldest first:
//
//	lines, err := logtail.Read(cfg.LogPath(), 200)
//
// A missing file yields nil, nil. Other I/O errors are returned wrapped.
//
// # Decoding
//
// The logger writes one JSON object per line. Parse turns a line into an
// Entry and Entry.Format renders it compactly:
//
//	{"level":"warn","item_id":3,"message":"quantity update failed"}
//	→ 10:11:12 WRN quantity update failed item_id=3
//
// Lines that are not JSON pass through unchanged.
package logtail
