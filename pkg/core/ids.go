package core

import (
	"io"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu    sync.Mutex
	idClock           = time.Now
	idRand  io.Reader = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewNodeID returns a fresh ULID. Ids are monotonic within the process, so a
// deleted bookmark's id is never handed out again.
func NewNodeID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(idClock()), idRand).String()
}

// EnsureIDs gives a fresh id to every node whose id is empty or already used
// earlier in pre-order. Imported trees may carry neither.
func EnsureIDs(tree Tree) {
	seen := make(map[string]struct{})
	var walk func(nodes []Bookmark)
	walk = func(nodes []Bookmark) {
		for i := range nodes {
			if _, dup := seen[nodes[i].ID]; nodes[i].ID == "" || dup {
				nodes[i].ID = NewNodeID()
			}
			seen[nodes[i].ID] = struct{}{}
			if nodes[i].Children == nil {
				nodes[i].Children = []Bookmark{}
			}
			walk(nodes[i].Children)
		}
	}
	walk(tree)
}
