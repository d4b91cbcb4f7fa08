package bus

import (
	"encoding/json"
	"fmt"

	"github.com/daresTheDevil/zeroshot/internal/state"
	"github.com/daresTheDevil/zeroshot/pkg/models"
)

// Mirror persists published events and cluster summaries to a SQLite
// database for observability only; nothing in the bus or orchestrator reads
// it back to make control-flow decisions (spec.md §1 non-goals). Grounded
// on the teacher's internal/state CRUD style (internal/state/session.go,
// adapted into internal/state/db.go's clusters/events schema).
type Mirror struct {
	db *state.DB
}

// NewMirror wraps an already-open, already-migrated *state.DB.
func NewMirror(db *state.DB) *Mirror {
	return &Mirror{db: db}
}

// RecordCluster upserts a cluster's current summary row.
func (m *Mirror) RecordCluster(s models.ClusterSummary) error {
	_, err := m.db.Exec(`
		INSERT INTO clusters (id, state, isolation_kind, worktree_path, branch, container_id, created_at, tokens_used, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			isolation_kind = excluded.isolation_kind,
			worktree_path = excluded.worktree_path,
			branch = excluded.branch,
			container_id = excluded.container_id,
			tokens_used = excluded.tokens_used,
			cost_usd = excluded.cost_usd
	`, s.ID, string(s.State), string(s.Isolation.Kind), s.Isolation.WorktreePath, s.Isolation.Branch,
		s.Isolation.ContainerID, s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"), s.TokensUsed, s.CostUSD)
	if err != nil {
		return fmt.Errorf("mirror cluster %s: %w", s.ID, err)
	}
	return nil
}

// RecordEvent persists a single ledger event. Called from a bus subscriber
// installed by the Supervisor at cluster start, so it never blocks Publish
// beyond the subscriber-callback window already required by spec.md §4.2.
func (m *Mirror) RecordEvent(msg models.Message) error {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = m.db.Exec(`
		INSERT OR IGNORE INTO events (cluster_id, seq, topic, publisher, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ClusterID, msg.Seq, msg.Topic, msg.Publisher, string(payload),
		msg.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"))
	if err != nil {
		return fmt.Errorf("mirror event cluster=%s seq=%d: %w", msg.ClusterID, msg.Seq, err)
	}
	return nil
}

// Events returns the mirrored events for clusterID in sequence order.
func (m *Mirror) Events(clusterID string) ([]models.Message, error) {
	rows, err := m.db.Query(`
		SELECT seq, topic, publisher, payload, created_at FROM events
		WHERE cluster_id = ? ORDER BY seq
	`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("query mirrored events: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var seq int64
		var topic, publisher, payload, createdAt string
		if err := rows.Scan(&seq, &topic, &publisher, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan mirrored event: %w", err)
		}
		var p map[string]any
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("unmarshal mirrored payload: %w", err)
		}
		ts, _ := state.ParseTime(createdAt)
		out = append(out, models.Message{
			Seq: seq, ClusterID: clusterID, Topic: topic, Publisher: publisher,
			Payload: p, Timestamp: ts,
		})
	}
	return out, nil
}

// Attach subscribes the mirror to every event on clusterID so each Publish
// is durably recorded. Returns the Unsubscribe so the Supervisor can detach
// it at cluster teardown.
func (m *Mirror) Attach(b *Bus, clusterID string) Unsubscribe {
	return b.Subscribe(clusterID, Filter{}, func(msg models.Message) {
		_ = m.RecordEvent(msg) // observability only; never surfaced to callers
	})
}
