// Package broadcast is the large-fanout extension. It is independent of
// the relay engine: connections that enable it hand over their raw
// channel at setup and the extension arranges them into relay trees, at
// most relayLimit viewers per relayer.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/core"
)

type node struct {
	id          string
	ch          core.Channel
	broadcastID string
	relayLimit  int
	children    map[string]*node
	initiator   bool
}

// Manager tracks every broadcast tree on this server.
type Manager struct {
	mu         sync.Mutex
	nodes      map[string]*node // by user id
	initiators map[string]*node // by broadcast id
}

func NewManager() *Manager {
	return &Manager{
		nodes:      make(map[string]*node),
		initiators: make(map[string]*node),
	}
}

// Attach registers a connection with the extension. relayLimit caps how
// many viewers this user will relay for.
func (m *Manager) Attach(userID string, ch core.Channel, relayLimit int) {
	if relayLimit <= 0 {
		relayLimit = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[userID] = &node{
		id:         userID,
		ch:         ch,
		relayLimit: relayLimit,
		children:   make(map[string]*node),
	}
}

// Join places a user into a broadcast. The first joiner of an unknown
// broadcast becomes its initiator and is told to start broadcasting;
// later joiners are pointed at a relayer with spare capacity.
func (m *Manager) Join(userID, broadcastID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.nodes[userID]
	if n == nil {
		return
	}
	n.broadcastID = broadcastID

	root := m.initiators[broadcastID]
	if root == nil {
		n.initiator = true
		m.initiators[broadcastID] = n
		if err := n.ch.Emit("start-broadcasting", broadcastID); err != nil {
			log.Debug().Err(err).Str("module", "broadcast").Msg("emit start-broadcasting")
		}
		log.Info().Str("module", "broadcast").Str("broadcast", broadcastID).Str("userid", userID).Msg("broadcast started")
		return
	}

	relayer := m.findRelayerLocked(root)
	if relayer == nil {
		// Tree is saturated; the initiator absorbs the overflow.
		relayer = root
	}
	relayer.children[userID] = n
	if err := n.ch.Emit("join-broadcaster", relayer.id, broadcastID); err != nil {
		log.Debug().Err(err).Str("module", "broadcast").Msg("emit join-broadcaster")
	}
}

// findRelayerLocked walks the tree breadth-first for a node with spare
// relay capacity, keeping new viewers close to the source.
func (m *Manager) findRelayerLocked(root *node) *node {
	queue := []*node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if len(n.children) < n.relayLimit {
			return n
		}
		for _, child := range n.children {
			queue = append(queue, child)
		}
	}
	return nil
}

// Leave removes a user on disconnect. Losing the initiator stops the
// whole broadcast; losing a relayer tells its viewers to rejoin so they
// get re-seated elsewhere in the tree.
func (m *Manager) Leave(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.nodes[userID]
	if n == nil {
		return
	}
	delete(m.nodes, userID)
	if n.broadcastID == "" {
		return
	}

	if n.initiator {
		root := m.initiators[n.broadcastID]
		delete(m.initiators, n.broadcastID)
		m.walkLocked(root, func(viewer *node) {
			if viewer == root {
				return
			}
			_ = viewer.ch.Emit("broadcast-stopped", n.broadcastID)
		})
		log.Info().Str("module", "broadcast").Str("broadcast", n.broadcastID).Msg("broadcast stopped")
		return
	}

	if parent := m.parentOfLocked(n); parent != nil {
		delete(parent.children, userID)
	}
	for _, child := range n.children {
		_ = child.ch.Emit("rejoin-broadcast", n.broadcastID)
	}
}

func (m *Manager) walkLocked(root *node, fn func(*node)) {
	if root == nil {
		return
	}
	fn(root)
	for _, child := range root.children {
		m.walkLocked(child, fn)
	}
}

func (m *Manager) parentOfLocked(target *node) *node {
	root := m.initiators[target.broadcastID]
	var parent *node
	m.walkLocked(root, func(n *node) {
		if _, ok := n.children[target.id]; ok {
			parent = n
		}
	})
	return parent
}
