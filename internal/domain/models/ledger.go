package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DeploymentRecord is the current on-chain state of one contract
type DeploymentRecord struct {
	Contract        string     `json:"contract"`
	Address         Felt       `json:"address"`
	ClassHash       Felt       `json:"classHash"`
	ConstructorArgs *Args      `json:"constructorArgs,omitempty"`
	ArtifactHash    *Felt      `json:"artifactHash,omitempty"`
	TxHash          *Felt      `json:"txHash,omitempty"`
	DeployedAt      time.Time  `json:"deployedAt"`
	UpgradedAt      *time.Time `json:"upgradedAt,omitempty"`
}

// WiringMarker records the last wiring batch applied on a network
type WiringMarker struct {
	Fingerprint Felt      `json:"fingerprint"`
	TxHash      Felt      `json:"txHash"`
	AppliedAt   time.Time `json:"appliedAt"`
}

// Ledger is the per-network deployment state, keyed by contract name
// in first-insertion order.
type Ledger struct {
	Network   Network
	ChainID   string
	UpdatedAt time.Time

	order   []string
	records map[string]DeploymentRecord
	wiring  *WiringMarker
	dirty   bool
}

// NewLedger creates an empty ledger
func NewLedger(network Network) *Ledger {
	return &Ledger{
		Network: network,
		records: make(map[string]DeploymentRecord),
	}
}

// Register inserts or overwrites the record for contract
func (l *Ledger) Register(contract string, record DeploymentRecord) {
	if _, exists := l.records[contract]; !exists {
		l.order = append(l.order, contract)
	}
	record.Contract = contract
	record.DeployedAt = normalizeTime(record.DeployedAt)
	if record.UpgradedAt != nil {
		t := normalizeTime(*record.UpgradedAt)
		record.UpgradedAt = &t
	}
	l.records[contract] = record
	l.dirty = true
}

// Get returns the record for contract
func (l *Ledger) Get(contract string) (DeploymentRecord, bool) {
	r, ok := l.records[contract]
	return r, ok
}

func (l *Ledger) Has(contract string) bool {
	_, ok := l.records[contract]
	return ok
}

// Names returns contract names in first-insertion order
func (l *Ledger) Names() []string {
	return append([]string(nil), l.order...)
}

// Records returns all records in first-insertion order
func (l *Ledger) Records() []DeploymentRecord {
	out := make([]DeploymentRecord, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.records[name])
	}
	return out
}

func (l *Ledger) Len() int {
	return len(l.order)
}

func (l *Ledger) IsDirty() bool {
	return l.dirty
}

// MarkClean clears the dirty flag after a successful export
func (l *Ledger) MarkClean() {
	l.dirty = false
}

// Wiring returns the last applied wiring marker
func (l *Ledger) Wiring() *WiringMarker {
	return l.wiring
}

// SetWiring records a wiring batch
func (l *Ledger) SetWiring(m WiringMarker) {
	m.AppliedAt = normalizeTime(m.AppliedAt)
	l.wiring = &m
	l.dirty = true
}

// Clone returns a deep copy of l
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		Network:   l.Network,
		ChainID:   l.ChainID,
		UpdatedAt: l.UpdatedAt,
		order:     append([]string(nil), l.order...),
		records:   make(map[string]DeploymentRecord, len(l.records)),
		dirty:     l.dirty,
	}
	for k, v := range l.records {
		c.records[k] = v
	}
	if l.wiring != nil {
		w := *l.wiring
		c.wiring = &w
	}
	return c
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// manifest is the persisted form of a Ledger
type manifest struct {
	Network   Network         `json:"network"`
	ChainID   string          `json:"chainId,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Contracts json.RawMessage `json:"contracts"`
	Wiring    *WiringMarker   `json:"wiring,omitempty"`
}

// MarshalJSON writes contracts as an object in first-insertion order
func (l *Ledger) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range l.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		rec, err := json.Marshal(l.records[name])
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(rec)
	}
	buf.WriteByte('}')

	return json.Marshal(manifest{
		Network:   l.Network,
		ChainID:   l.ChainID,
		UpdatedAt: normalizeTime(l.UpdatedAt),
		Contracts: buf.Bytes(),
		Wiring:    l.wiring,
	})
}

// UnmarshalJSON restores a ledger, preserving the persisted contract order.
// A loaded ledger is clean.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m.Network == "" {
		return fmt.Errorf("manifest has no network")
	}
	out := NewLedger(m.Network)
	out.ChainID = m.ChainID
	out.UpdatedAt = m.UpdatedAt
	out.wiring = m.Wiring

	if len(m.Contracts) > 0 && string(m.Contracts) != "null" {
		dec := json.NewDecoder(bytes.NewReader(m.Contracts))
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return fmt.Errorf("contracts must be an object")
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			name, ok := tok.(string)
			if !ok {
				return fmt.Errorf("expected contract name, got %v", tok)
			}
			var rec DeploymentRecord
			if err := dec.Decode(&rec); err != nil {
				return fmt.Errorf("record %s: %w", name, err)
			}
			if rec.Address.IsZero() || rec.ClassHash.IsZero() {
				return fmt.Errorf("record %s: missing address or class hash", name)
			}
			if _, dup := out.records[name]; dup {
				return fmt.Errorf("duplicate record %s", name)
			}
			rec.Contract = name
			out.order = append(out.order, name)
			out.records[name] = rec
		}
	}

	*l = *out
	return nil
}
