package analysis

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/flocksim/internal/bird"
)

// Cluster is a group of particles linked by chains of close, aligned pairs.
type Cluster struct {
	Members []int   `json:"members"`
	Order   float64 `json:"order"`
}

// ClusterResult is the cluster decomposition of one snapshot, largest
// cluster first.
type ClusterResult struct {
	Clusters    []Cluster `json:"clusters"`
	Largest     int       `json:"largest"`
	MeanSize    float64   `json:"mean_size"`
	LargestFrac float64   `json:"largest_fraction"`
}

// FindClusters links particles i and j when their geodesic distance is at
// most maxDist and the cosine between j's velocity transported to i and
// i's own velocity is at least minAlign. Pass minAlign <= -1 to cluster by
// distance alone.
func FindClusters(flock []bird.Particle, radius, maxDist, minAlign float64) ClusterResult {
	n := len(flock)
	uf := newUnionFind(n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if flock[i].DistanceFrom(flock[j], radius) > maxDist {
				continue
			}
			if minAlign > -1 && aligned(flock[i], flock[j]) < minAlign {
				continue
			}
			uf.union(i, j)
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	res := ClusterResult{Clusters: make([]Cluster, 0, len(groups))}
	for _, members := range groups {
		sub := make([]bird.Particle, len(members))
		for k, idx := range members {
			sub[k] = flock[idx]
		}
		res.Clusters = append(res.Clusters, Cluster{Members: members, Order: OrderParameter(sub)})
	}
	sort.Slice(res.Clusters, func(a, b int) bool {
		ca, cb := res.Clusters[a], res.Clusters[b]
		if len(ca.Members) != len(cb.Members) {
			return len(ca.Members) > len(cb.Members)
		}
		return ca.Members[0] < cb.Members[0]
	})

	if len(res.Clusters) > 0 {
		sizes := make([]float64, len(res.Clusters))
		for i, c := range res.Clusters {
			sizes[i] = float64(len(c.Members))
		}
		res.Largest = int(floats.Max(sizes))
		res.MeanSize = floats.Sum(sizes) / float64(len(sizes))
		res.LargestFrac = float64(res.Largest) / float64(n)
	}
	return res
}

func aligned(a, b bird.Particle) float64 {
	va := a.Velocity.Normalize()
	vb := b.ParallelTransportVelocity(a).Normalize()
	if va.NormSquared() == 0 || vb.NormSquared() == 0 {
		return 1
	}
	return va.Dot(vb)
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
