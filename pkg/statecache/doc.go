// Package statecache keeps a local copy of remote storage values addressed
// by their derived storage keys. Because entries are ordered by key, every
// key prefix from package storagekey maps to a contiguous range, so a map can
// be enumerated locally the same way a node enumerates it remotely.
package statecache
