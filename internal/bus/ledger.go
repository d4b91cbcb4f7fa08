// Package bus implements the Message Bus / Ledger: a per-cluster
// append-only, topic-indexed event log (spec.md §4.2).
package bus

import (
	"sync"
	"time"

	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// PublishInput is the caller-supplied fields of a new event; Seq and
// Timestamp are assigned by the ledger.
type PublishInput struct {
	ClusterID string
	Topic     string
	Publisher string
	Payload   map[string]any
}

// Filter narrows a Query or Subscribe call. A zero-value field means
// "match anything" for that dimension.
type Filter struct {
	Topic     string
	SincePlus int64 // seq strictly greater than this (0 means "from the start")
	Publisher string
}

func (f Filter) matches(m models.Message) bool {
	if f.Topic != "" && m.Topic != f.Topic {
		return false
	}
	if f.Publisher != "" && m.Publisher != f.Publisher {
		return false
	}
	if m.Seq <= f.SincePlus {
		return false
	}
	return true
}

// Unsubscribe removes a previously registered subscriber.
type Unsubscribe func()

type subscriber struct {
	id     uint64
	filter Filter
	fn     func(models.Message)
}

// clusterLedger is the authoritative append-only log for one cluster. All
// mutation is serialized through mu, matching spec.md §4.2's "concurrent
// publishers see a linearizable append" and "total order per cluster".
type clusterLedger struct {
	mu          sync.Mutex
	clusterID   string
	messages    []models.Message
	subscribers []subscriber
	nextSeq     int64
	nextSubID   uint64
}

// Bus owns one clusterLedger per cluster id. Grounded on the teacher's
// EventEmitter (channel-based, drop-on-backpressure) but reshaped into a
// synchronous, queryable append-only log: the spec requires subscriber
// callbacks to complete before publish returns and requires historical
// query, neither of which a channel can give you.
type Bus struct {
	mu       sync.Mutex
	clusters map[string]*clusterLedger
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{clusters: make(map[string]*clusterLedger)}
}

func (b *Bus) ledgerFor(clusterID string) *clusterLedger {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.clusters[clusterID]
	if !ok {
		l = &clusterLedger{clusterID: clusterID}
		b.clusters[clusterID] = l
	}
	return l
}

// Publish assigns the next sequence number for input.ClusterID, appends the
// event, and notifies matching subscribers synchronously in registration
// order before returning. Returns the assigned sequence number.
func (b *Bus) Publish(input PublishInput) int64 {
	l := b.ledgerFor(input.ClusterID)

	l.mu.Lock()
	l.nextSeq++
	msg := models.Message{
		Seq:       l.nextSeq,
		ClusterID: input.ClusterID,
		Topic:     input.Topic,
		Publisher: input.Publisher,
		Payload:   input.Payload,
		Timestamp: time.Now(),
	}
	l.messages = append(l.messages, msg)
	subs := make([]subscriber, len(l.subscribers))
	copy(subs, l.subscribers)
	l.mu.Unlock()

	for _, s := range subs {
		if s.filter.matches(msg) {
			s.fn(msg)
		}
	}

	return msg.Seq
}

// Query returns all events for clusterID matching filter, in sequence order.
func (b *Bus) Query(clusterID string, filter Filter) []models.Message {
	l := b.ledgerFor(clusterID)
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Message
	for _, m := range l.messages {
		if filter.matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// Subscribe registers fn to be called synchronously, in registration order
// alongside other subscribers, for every future event on clusterID matching
// filter. The returned Unsubscribe stops delivery; it is safe to call more
// than once.
func (b *Bus) Subscribe(clusterID string, filter Filter, fn func(models.Message)) Unsubscribe {
	l := b.ledgerFor(clusterID)

	l.mu.Lock()
	l.nextSubID++
	id := l.nextSubID
	l.subscribers = append(l.subscribers, subscriber{id: id, filter: filter, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, s := range l.subscribers {
				if s.id == id {
					l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
					break
				}
			}
		})
	}
}

// LastSeq returns the highest sequence number published for clusterID, or 0
// if nothing has been published yet.
func (b *Bus) LastSeq(clusterID string) int64 {
	l := b.ledgerFor(clusterID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq
}

// Drop removes a cluster's ledger entirely. Called by the Supervisor once a
// cluster is torn down and its mirror (if any) has caught up.
func (b *Bus) Drop(clusterID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clusters, clusterID)
}
