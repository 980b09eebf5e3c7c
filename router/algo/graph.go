package algo

import (
	"container/heap"
	"math"

	"github.com/paulmach/orb"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
)

type node[NT any] struct {
	p    orb.Point
	attr NT
}

type edge[ET any] struct {
	from, to int
	attr     ET
}

// Weight extracts the search cost of an edge from its attribute. It is
// called with the graph's read lock held.
type Weight[ET any] func(attr ET) float64

// SearchGraph is a directed graph with attribute-carrying nodes and edges.
// Parallel edges between the same ordered node pair are allowed; each keeps
// its own attribute so the weight function can price them independently.
//
// Topology is fixed after construction. Edge attributes may carry mutable
// state owned by the caller; writers go through Update and searches hold the
// read side of the same lock, so a search never observes a half-applied
// update.
type SearchGraph[NT any, ET any] struct {
	nodes []node[NT]
	edges []edge[ET]
	// out[n] lists the indices of edges leaving node n.
	out [][]int32

	mu *xsync.RBMutex
}

func NewSearchGraph[NT any, ET any]() *SearchGraph[NT, ET] {
	return &SearchGraph[NT, ET]{
		nodes: make([]node[NT], 0),
		edges: make([]edge[ET], 0),
		out:   make([][]int32, 0),
		mu:    xsync.NewRBMutex(),
	}
}

func (g *SearchGraph[NT, ET]) InitNode(p orb.Point, attr NT) int {
	g.nodes = append(g.nodes, node[NT]{p: p, attr: attr})
	g.out = append(g.out, nil)
	return len(g.nodes) - 1
}

func (g *SearchGraph[NT, ET]) InitEdge(from, to int, attr ET) int {
	if from >= len(g.nodes) {
		log.Panicf("from node %d >= len(g.nodes) %d", from, len(g.nodes))
	}
	if to >= len(g.nodes) {
		log.Panicf("to node %d >= len(g.nodes) %d", to, len(g.nodes))
	}
	id := len(g.edges)
	g.edges = append(g.edges, edge[ET]{from: from, to: to, attr: attr})
	g.out[from] = append(g.out[from], int32(id))
	return id
}

func (g *SearchGraph[NT, ET]) NumNodes() int { return len(g.nodes) }
func (g *SearchGraph[NT, ET]) NumEdges() int { return len(g.edges) }

func (g *SearchGraph[NT, ET]) NodePoint(id int) orb.Point { return g.nodes[id].p }
func (g *SearchGraph[NT, ET]) NodeAttr(id int) NT         { return g.nodes[id].attr }
func (g *SearchGraph[NT, ET]) EdgeAttr(id int) ET         { return g.edges[id].attr }

// Update runs fn while holding the write lock. All mutation of edge
// attribute state that a Weight function may read must go through here.
func (g *SearchGraph[NT, ET]) Update(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// View runs fn while holding the read lock, for consistent multi-field reads
// of edge attribute state.
func (g *SearchGraph[NT, ET]) View(fn func()) {
	t := g.mu.RLock()
	defer g.mu.RUnlock(t)
	fn()
}

// PathItem is one step of a found path: a node plus the edge leaving it.
// The last item of a path carries the zero EdgeAttr.
type PathItem[NT any, ET any] struct {
	NodeAttr NT
	EdgeAttr ET
}

func (g *SearchGraph[NT, ET]) reconstructPath(cameFrom map[int]int32, curNode int) []PathItem[NT, ET] {
	pathBeforeReversed := []PathItem[NT, ET]{{NodeAttr: g.nodes[curNode].attr}}
	for {
		eIdx, ok := cameFrom[curNode]
		if !ok {
			break
		}
		e := g.edges[eIdx]
		curNode = e.from
		pathBeforeReversed = append(pathBeforeReversed, PathItem[NT, ET]{
			NodeAttr: g.nodes[curNode].attr,
			EdgeAttr: e.attr,
		})
	}
	return lo.Reverse(pathBeforeReversed)
}

// ShortestPath runs Dijkstra from start to end with w as the edge weight.
// Returns nil and +Inf when end is unreachable.
func (g *SearchGraph[NT, ET]) ShortestPath(start, end int, w Weight[ET]) ([]PathItem[NT, ET], float64) {
	t := g.mu.RLock()
	defer g.mu.RUnlock(t)
	if start == end {
		return []PathItem[NT, ET]{{NodeAttr: g.nodes[start].attr}}, 0
	}
	openSet := make(PriorityQueue, 1)
	openSetMap := make(map[int]*Item, 1) // openSet value -> openSet item
	cameFrom := make(map[int]int32)      // node -> edge index used to reach it
	gScore := make(map[int]float64)
	gScore[start] = .0
	openSet[0] = &Item{Value: start, Priority: 0, Index: 0}
	openSetMap[start] = openSet[0]
	heap.Init(&openSet)
	for openSet.Len() > 0 {
		cur := heap.Pop(&openSet).(*Item).Value
		if cur == end {
			return g.reconstructPath(cameFrom, cur), gScore[cur]
		}
		delete(openSetMap, cur)
		for _, eIdx := range g.out[cur] {
			e := g.edges[eIdx]
			gScoreTentative := gScore[cur] + w(e.attr)
			gScoreNeighbor := math.Inf(0)
			if s, visited := gScore[e.to]; visited {
				gScoreNeighbor = s
			}
			if gScoreTentative < gScoreNeighbor {
				cameFrom[e.to] = eIdx
				gScore[e.to] = gScoreTentative
				if item, open := openSetMap[e.to]; open {
					// already queued, lower its priority in place
					item.Priority = gScoreTentative
					heap.Fix(&openSet, item.Index)
				} else {
					item := &Item{Value: e.to, Priority: gScoreTentative}
					heap.Push(&openSet, item)
					openSetMap[e.to] = item
				}
			}
		}
	}
	return nil, math.Inf(0)
}
