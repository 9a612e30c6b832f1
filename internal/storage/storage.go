// internal/storage/storage.go
package storage

import "context"

// Store persists confirmed settlements, access grants and state snapshots.
type Store interface {
	SaveSettlement(ctx context.Context, s *Settlement) error
	ListSettlements(ctx context.Context, owner string, limit int) ([]*Settlement, error)

	SaveAccessGrant(ctx context.Context, g *AccessGrant) error

	SaveIcoState(ctx context.Context, rec *IcoStateRecord) error
	LoadIcoState(ctx context.Context, owner string) (*IcoStateRecord, error)

	SaveResourceState(ctx context.Context, rec *ResourceStateRecord) error
	ListResourceStates(ctx context.Context, owner string) ([]*ResourceStateRecord, error)

	RunMigrations() error
	Close() error
}
