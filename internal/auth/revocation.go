package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Revocations records logged-out token ids until they expire.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocations is a process-local revocation list.
type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations creates an empty list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}
	if until.After(now) {
		m.entries[tokenID] = until
	}
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[tokenID]
	return ok && exp.After(m.now()), nil
}

// ValkeyRevocations shares the revocation list between server replicas.
// Each entry expires with the token it revokes.
type ValkeyRevocations struct {
	client valkey.Client
	prefix string
}

// NewValkeyRevocations connects to addr and checks the connection.
func NewValkeyRevocations(addr string) (*ValkeyRevocations, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("Using Valkey session revocation list", "address", addr)
	return &ValkeyRevocations{client: client, prefix: "bastion:revoked:"}, nil
}

func (v *ValkeyRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	seconds := int64(time.Until(until).Seconds()) + 1
	if seconds <= 1 {
		return nil
	}
	cmd := v.client.B().Set().Key(v.prefix + tokenID).Value("1").ExSeconds(seconds).Build()
	return v.client.Do(ctx, cmd).Error()
}

func (v *ValkeyRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := v.client.Do(ctx, v.client.B().Exists().Key(v.prefix+tokenID).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the client.
func (v *ValkeyRevocations) Close() {
	v.client.Close()
}
