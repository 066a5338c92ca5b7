package testutil

import (
	"testing/fstest"
)

// BuildFS returns an in-memory file system from alternating path/content pairs.
func BuildFS(pairs ...string) fstest.MapFS {
	if len(pairs)%2 != 0 {
		panic("testutil.BuildFS: odd number of arguments")
	}
	fsys := make(fstest.MapFS, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		fsys[pairs[i]] = &fstest.MapFile{Data: []byte(pairs[i+1])}
	}
	return fsys
}
