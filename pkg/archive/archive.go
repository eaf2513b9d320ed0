package archive

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/types"
)

var (
	bucketAlerts = []byte("alerts")
	bucketAudio  = []byte("audio")
	bucketAudit  = []byte("audit")
)

// Archive persists the artifacts that must survive restart: published
// alerts, their synthesized audio, and the audit trail. Graph state is
// deliberately not persisted; on restart the case graph starts empty.
type Archive struct {
	db *bolt.DB
}

// Open creates or opens the archive file
func Open(path string) (*Archive, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAlerts, bucketAudio, bucketAudit} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	log.WithComponent("archive").Info().Str("path", path).Msg("Archive opened")
	return &Archive{db: db}, nil
}

// Close releases the underlying database
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveAlert stores or overwrites an alert by id
func (a *Archive) SaveAlert(alert *types.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert %s: %w", alert.ID, err)
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAlerts).Put([]byte(alert.ID), data)
	})
}

// GetAlert loads one alert, or nil when absent
func (a *Archive) GetAlert(id string) (*types.Alert, error) {
	var alert *types.Alert
	err := a.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketAlerts).Get([]byte(id))
		if raw == nil {
			return nil
		}
		alert = &types.Alert{}
		return json.Unmarshal(raw, alert)
	})
	return alert, err
}

// Alerts returns every stored alert, newest first
func (a *Archive) Alerts() ([]*types.Alert, error) {
	var out []*types.Alert
	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAlerts).ForEach(func(_, raw []byte) error {
			alert := &types.Alert{}
			if err := json.Unmarshal(raw, alert); err != nil {
				return err
			}
			out = append(out, alert)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// Bucket order is by id, not by time.
	sortAlerts(out)
	return out, nil
}

// SaveAudio stores the synthesized audio for an alert
func (a *Archive) SaveAudio(alertID string, audio []byte) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAudio).Put([]byte(alertID), audio)
	})
}

// Audio loads an alert's audio, or nil when absent
func (a *Archive) Audio(alertID string) ([]byte, error) {
	var out []byte
	err := a.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketAudio).Get([]byte(alertID))
		if raw != nil {
			out = make([]byte, len(raw))
			copy(out, raw)
		}
		return nil
	})
	return out, err
}

// AppendAudit appends one entry to the audit trail
func (a *Archive) AppendAudit(entry types.AuditEntry) error {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAudit)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// RecentAudit returns up to limit entries, most recent first
func (a *Archive) RecentAudit(limit int) ([]types.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []types.AuditEntry
	err := a.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAudit).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var entry types.AuditEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			out = append(out, entry)
		}
		return nil
	})
	return out, err
}

func sortAlerts(alerts []*types.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].ID > alerts[j].ID
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}
