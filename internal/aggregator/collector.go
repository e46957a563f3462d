package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/goodnatureofminers/pool-coordinator/pkg/workerpool"
	"go.uber.org/zap"
)

// Collector fetches every configured node concurrently.
type Collector struct {
	client  NodeClient
	nodes   []model.PoolNode
	metrics Metrics
	logger  *zap.Logger
}

// NewCollector builds a Collector over the configured nodes.
func NewCollector(client NodeClient, nodes []model.PoolNode, metrics Metrics, logger *zap.Logger) *Collector {
	return &Collector{
		client:  client,
		nodes:   nodes,
		metrics: metrics,
		logger:  logger,
	}
}

// Nodes returns the configured nodes.
func (c *Collector) Nodes() []model.PoolNode {
	return c.nodes
}

// Collect returns the stats of every node that answered, in completion order.
// Unreachable nodes are logged and left out.
func (c *Collector) Collect(ctx context.Context) []model.PoolNodeStats {
	var (
		mu      sync.Mutex
		results = make([]model.PoolNodeStats, 0, len(c.nodes))
	)

	_ = workerpool.Each(ctx, len(c.nodes), c.nodes, func(ctx context.Context, i int, node model.PoolNode) {
		started := time.Now()
		stats, err := c.client.FetchStats(ctx, node)
		c.metrics.ObserveNode(node.URL, err, started)
		if err != nil {
			c.logger.Warn("node unreachable",
				zap.String("node", node.URL),
				zap.String("role", string(node.Role)),
				zap.Error(err),
			)
			return
		}

		stats.URL = node.URL
		stats.Role = node.Role
		stats.Order = i

		mu.Lock()
		results = append(results, *stats)
		mu.Unlock()
	})

	return results
}

// MinerStats queries every node for address and sums the nodes that know the
// miner. It returns nil when no node does.
func (c *Collector) MinerStats(ctx context.Context, address string) *model.MinerStats {
	perNode := make([]*model.MinerNodeStats, len(c.nodes))
	_ = workerpool.Each(ctx, len(c.nodes), c.nodes, func(ctx context.Context, i int, node model.PoolNode) {
		stats, err := c.client.FetchMinerStats(ctx, node, address)
		if err != nil {
			c.logger.Warn("miner stats unavailable", zap.String("node", node.URL), zap.Error(err))
			return
		}
		stats.URL = node.URL
		stats.Order = i
		perNode[i] = stats
	})

	results := make([]model.MinerNodeStats, 0, len(perNode))
	for _, s := range perNode {
		if s != nil {
			results = append(results, *s)
		}
	}
	return ReduceMiner(results)
}

// Workers lists the miner's rigs across all nodes in configuration order.
// Unreachable nodes contribute nothing.
func (c *Collector) Workers(ctx context.Context, address string) []model.Worker {
	perNode := make([][]model.Worker, len(c.nodes))
	_ = workerpool.Each(ctx, len(c.nodes), c.nodes, func(ctx context.Context, i int, node model.PoolNode) {
		workers, err := c.client.FetchWorkers(ctx, node, address)
		if err != nil {
			c.logger.Warn("workers unavailable", zap.String("node", node.URL), zap.Error(err))
			return
		}
		perNode[i] = workers
	})

	all := make([]model.Worker, 0)
	for _, workers := range perNode {
		all = append(all, workers...)
	}
	return all
}
