package orchestrator

import (
	"testing"
	"time"

	"github.com/daresTheDevil/zeroshot/internal/bus"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

func TestShutdownDetectorFiresOncePerCluster(t *testing.T) {
	b := bus.New()
	calls := make(chan string, 4)
	d := newShutdownDetector(b, func(clusterID string) { calls <- clusterID })
	d.Watch("c1")

	b.Publish(bus.PublishInput{ClusterID: "c1", Topic: models.TopicClusterStop, Publisher: "worker"})
	b.Publish(bus.PublishInput{ClusterID: "c1", Topic: models.TopicClusterStop, Publisher: "worker"})

	select {
	case got := <-calls:
		if got != "c1" {
			t.Errorf("clusterID = %q, want c1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected onStop to fire once")
	}

	select {
	case got := <-calls:
		t.Fatalf("onStop fired a second time for %q, want exactly once", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestShutdownDetectorForgetStopsWatching(t *testing.T) {
	b := bus.New()
	calls := make(chan string, 4)
	d := newShutdownDetector(b, func(clusterID string) { calls <- clusterID })
	d.Watch("c1")
	d.Forget("c1")

	b.Publish(bus.PublishInput{ClusterID: "c1", Topic: models.TopicClusterStop, Publisher: "worker"})

	select {
	case got := <-calls:
		t.Fatalf("onStop fired after Forget: %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}
