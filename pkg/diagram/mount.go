package diagram

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/metaxime/pathview/pkg/errors"
	"github.com/metaxime/pathview/pkg/layout"
	"github.com/metaxime/pathview/pkg/structure"
)

// MountRequest asks for a structure depiction inside a node box.
type MountRequest struct {
	NodeID    string
	Structure string
	Box       layout.NodeBox
	Options   structure.Options
}

// Mount is a structure depiction attached to a compound node. A failed
// render keeps Err and leaves Depiction nil.
type Mount struct {
	NodeID    string
	Structure string
	Box       layout.NodeBox
	Depiction *structure.Depiction
	Err       error

	closed bool
}

// Closed reports whether the mount was torn down by a later Sync or Close.
func (m *Mount) Closed() bool { return m.closed }

// Mounts owns the depictions of one diagram, keyed by node id.
type Mounts struct {
	mu    sync.Mutex
	byID  map[string]*Mount
	order []string
}

// NewMounts returns an empty set.
func NewMounts() *Mounts {
	return &Mounts{byID: make(map[string]*Mount)}
}

// Sync tears down every current mount and then renders one mount per
// request. Rendering runs with at most limit workers; results are returned
// in request order. A canceled context leaves the remaining mounts with the
// context error.
func (ms *Mounts) Sync(ctx context.Context, reqs []MountRequest, r *structure.Renderer, limit int) []*Mount {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.teardown()

	mounts := make([]*Mount, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, req := range reqs {
		m := &Mount{NodeID: req.NodeID, Structure: req.Structure, Box: req.Box}
		mounts[i] = m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				m.Err = err
				return nil
			}
			box := structure.Box{Width: req.Box.Width, Height: req.Box.Height}
			dep, err := r.Render(req.Structure, box, req.Options)
			if err != nil {
				m.Err = errors.Wrap(errors.ErrCodeParse, err, "depict %s", req.NodeID)
				return nil
			}
			m.Depiction = dep
			return nil
		})
	}
	_ = g.Wait()

	for _, m := range mounts {
		if _, dup := ms.byID[m.NodeID]; !dup {
			ms.order = append(ms.order, m.NodeID)
		}
		ms.byID[m.NodeID] = m
	}
	return mounts
}

func (ms *Mounts) teardown() {
	for _, m := range ms.byID {
		m.closed = true
		m.Depiction = nil
	}
	clear(ms.byID)
	ms.order = ms.order[:0]
}

// Get returns the live mount of a node.
func (ms *Mounts) Get(id string) (*Mount, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	m, ok := ms.byID[id]
	return m, ok
}

// All returns the live mounts in mount order.
func (ms *Mounts) All() []*Mount {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]*Mount, 0, len(ms.order))
	for _, id := range ms.order {
		out = append(out, ms.byID[id])
	}
	return out
}

// Len is the number of live mounts.
func (ms *Mounts) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.byID)
}

// Close tears down every mount.
func (ms *Mounts) Close() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.teardown()
}
