package orchestrator

import (
	"sync"

	"github.com/daresTheDevil/zeroshot/internal/bus"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// shutdownDetector subscribes to the reserved CLUSTER_STOP topic across
// every cluster and invokes onStop exactly once per cluster id (spec.md
// §4.4: "initiates graceful stop upon first occurrence").
type shutdownDetector struct {
	onStop func(clusterID string)

	mu      sync.Mutex
	fired   map[string]bool
	unsub   map[string]bus.Unsubscribe
	bus     *bus.Bus
}

func newShutdownDetector(b *bus.Bus, onStop func(clusterID string)) *shutdownDetector {
	return &shutdownDetector{
		onStop: onStop,
		fired:  make(map[string]bool),
		unsub:  make(map[string]bus.Unsubscribe),
		bus:    b,
	}
}

// Watch registers CLUSTER_STOP watching for clusterID. Supervisor.Start
// calls this once per cluster right after the cluster record is created.
func (d *shutdownDetector) Watch(clusterID string) {
	unsub := d.bus.Subscribe(clusterID, bus.Filter{Topic: models.TopicClusterStop}, func(models.Message) {
		d.mu.Lock()
		already := d.fired[clusterID]
		d.fired[clusterID] = true
		d.mu.Unlock()
		if already {
			return
		}
		d.onStop(clusterID)
	})
	d.mu.Lock()
	d.unsub[clusterID] = unsub
	d.mu.Unlock()
}

// Forget releases the subscription for a cluster that has been torn down.
func (d *shutdownDetector) Forget(clusterID string) {
	d.mu.Lock()
	unsub, ok := d.unsub[clusterID]
	delete(d.unsub, clusterID)
	delete(d.fired, clusterID)
	d.mu.Unlock()
	if ok {
		unsub()
	}
}
