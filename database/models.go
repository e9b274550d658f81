package database

import "hash/fnv"

// Reading is a registered PDF with its base name and path on the file
// system.
type Reading struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// PathID derives the reading id of path from an FNV-1 hash, so the same
// file gets the same id on every registration.
func PathID(path string) int {
	h := fnv.New32()
	h.Write([]byte(path))
	return int(h.Sum32())
}
