package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/kgforge/kgforge/pkg/types"
)

// Cluster is a group of entities whose embeddings form a dense region.
type Cluster struct {
	Members []*types.Entity
}

// Names returns the canonical names of the cluster members, sorted by
// mention count descending.
func (c *Cluster) Names() []string {
	members := make([]*types.Entity, len(c.Members))
	copy(members, c.Members)
	sort.Slice(members, func(i, j int) bool {
		return members[i].MentionCount > members[j].MentionCount
	})
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.CanonicalName
	}
	return names
}

const (
	dbscanUnvisited = 0
	dbscanNoise     = -1
)

// ClusterEmbeddings runs DBSCAN over the embeddings of the given type
// (empty type means all). eps is a cosine-distance radius (1 - similarity);
// minPoints is the density threshold for a core point. Noise entities are
// not returned.
func (s *Scanner) ClusterEmbeddings(ctx context.Context, t types.EntityType, eps float64, minPoints int) ([]Cluster, error) {
	if eps <= 0 || minPoints < 1 {
		return nil, fmt.Errorf("analytics: eps must be positive and minPoints at least 1")
	}

	entities, err := s.store.EntitiesWithEmbeddings(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("analytics: failed to load entities: %w", err)
	}
	if len(entities) == 0 {
		return nil, nil
	}

	// labels[i]: 0 unvisited, -1 noise, >0 cluster number.
	labels := make([]int, len(entities))
	clusterID := 0

	for i := range entities {
		if labels[i] != dbscanUnvisited {
			continue
		}
		neighbors := regionQuery(entities, i, eps)
		if len(neighbors) < minPoints {
			labels[i] = dbscanNoise
			continue
		}

		clusterID++
		labels[i] = clusterID

		// Expand the cluster over a growing frontier. Noise points can be
		// claimed as border members; assigned points are final.
		for cursor := 0; cursor < len(neighbors); cursor++ {
			j := neighbors[cursor]
			if labels[j] == dbscanNoise {
				labels[j] = clusterID
				continue
			}
			if labels[j] != dbscanUnvisited {
				continue
			}
			labels[j] = clusterID

			next := regionQuery(entities, j, eps)
			if len(next) >= minPoints {
				neighbors = append(neighbors, next...)
			}
		}
	}

	clusters := make([]Cluster, clusterID)
	for i, label := range labels {
		if label > 0 {
			clusters[label-1].Members = append(clusters[label-1].Members, entities[i])
		}
	}
	return clusters, nil
}

// regionQuery returns the indexes within cosine distance eps of point i,
// including i itself.
func regionQuery(entities []*types.Entity, i int, eps float64) []int {
	var neighbors []int
	for j := range entities {
		if 1-cosineSimilarity(entities[i].Embedding, entities[j].Embedding) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
