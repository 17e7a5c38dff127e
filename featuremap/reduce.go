package featuremap

import "github.com/samber/lo"

// ReduceFeatures sweeps every cell's depth and obstacle trees and prunes
// nodes that are simultaneously: under-confident or under-observed
// (confidence < confThreshold OR count < countThreshold), unreferenced by
// any particle, and childless (§4.C.5). Pruning a leaf can make its parent
// eligible in turn, so each tree is swept to a fixed point.
func (m *Map) ReduceFeatures(confThreshold float64, countThreshold int) {
	for _, c := range m.cells {
		reduceDepthTree(c, confThreshold, countThreshold)
		reduceObstacleTree(c, confThreshold, countThreshold)
	}
}

func reduceDepthTree(c *cellState, confThreshold float64, countThreshold int) {
	for {
		doomed := lo.Filter(lo.Values(c.depthNodes), func(n *DepthNode, _ int) bool {
			return len(n.children) == 0 &&
				n.Refcount == 0 &&
				(n.Confidence < confThreshold || n.Count < countThreshold)
		})
		if len(doomed) == 0 {
			return
		}
		for _, n := range doomed {
			if n.Parent != RootID {
				if parent, ok := c.depthNodes[n.Parent]; ok {
					parent.children = removeID(parent.children, n.ID)
				}
			}
			delete(c.depthNodes, n.ID)
		}
	}
}

func reduceObstacleTree(c *cellState, confThreshold float64, countThreshold int) {
	for {
		doomed := lo.Filter(lo.Values(c.obstacleNodes), func(n *ObstacleNode, _ int) bool {
			return len(n.children) == 0 &&
				n.Refcount == 0 &&
				(n.Confidence < confThreshold || n.Count < countThreshold)
		})
		if len(doomed) == 0 {
			return
		}
		for _, n := range doomed {
			if n.Parent != RootID {
				if parent, ok := c.obstacleNodes[n.Parent]; ok {
					parent.children = removeID(parent.children, n.ID)
				}
			}
			delete(c.obstacleNodes, n.ID)
		}
	}
}

func removeID(ids []int64, target int64) []int64 {
	return lo.Filter(ids, func(id int64, _ int) bool { return id != target })
}
