package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"modbusgw/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no invocation matches the lookup
var ErrNotFound = errors.New("record not found")

var invocationColumns = []string{"request_id", "payload", "status", "record", "error", "exit_code", "duration_ms", "created_at"}

// InvocationRepository stores invocation history with the payload encrypted at rest
type InvocationRepository struct {
	repo      Repository[models.Invocation]
	sqlDB     *sql.DB
	secretKey string
}

// NewInvocationRepository creates a repository over db
func NewInvocationRepository(db *gorm.DB, secretKey string) (*InvocationRepository, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql database: %w", err)
	}
	return &InvocationRepository{
		repo:      NewGormRepository[models.Invocation](db),
		sqlDB:     sqlDB,
		secretKey: secretKey,
	}, nil
}

// Recent returns the newest invocations with decrypted payloads
func (invocationRepo *InvocationRepository) Recent(ctx context.Context, limit int) ([]*models.Invocation, error) {
	entries, err := invocationRepo.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i, entry := range entries {
		entries[i] = invocationRepo.decrypt(entry)
	}
	return entries, nil
}

// ByRequestID fetches the newest invocation carrying requestID. Retries of a
// workflow step share the id, so older attempts stay reachable through Recent.
func (invocationRepo *InvocationRepository) ByRequestID(ctx context.Context, requestID string) (*models.Invocation, error) {
	entry, err := invocationRepo.repo.GetByField(ctx, "request_id", requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return invocationRepo.decrypt(entry), nil
}

// InsertBatch encrypts the payloads and bulk-inserts the entries with COPY
func (invocationRepo *InvocationRepository) InsertBatch(ctx context.Context, entries []models.Invocation) error {
	rows, err := copyRows(entries, invocationRepo.secretKey)
	if err != nil {
		return err
	}

	// Get a connection from the pool and unwrap to pgx.Conn
	conn, err := invocationRepo.sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()

		_, copyErr := pgxConn.CopyFrom(
			ctx,
			pgx.Identifier{models.Invocation{}.TableName()},
			invocationColumns,
			pgx.CopyFromRows(rows),
		)
		return copyErr
	})
}

// copyRows builds COPY rows in invocationColumns order with encrypted payloads
func copyRows(entries []models.Invocation, secretKey string) ([][]any, error) {
	rows := make([][]any, 0, len(entries))
	for _, entry := range entries {
		encrypted, err := EncryptStruct(entry, secretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt payload for %s: %w", entry.RequestID, err)
		}
		var record any
		if len(encrypted.Record) > 0 {
			record = string(encrypted.Record)
		}
		rows = append(rows, []any{
			encrypted.RequestID,
			encrypted.Payload,
			encrypted.Status,
			record,
			encrypted.Error,
			encrypted.ExitCode,
			encrypted.DurationMs,
			encrypted.CreatedAt,
		})
	}
	return rows, nil
}

func (invocationRepo *InvocationRepository) decrypt(entry *models.Invocation) *models.Invocation {
	decrypted, err := DecryptStruct(*entry, invocationRepo.secretKey)
	if err != nil {
		slog.Warn("Failed to decrypt invocation payload", "component", "InvocationRepository", "request_id", entry.RequestID, "error", err)
		return entry
	}
	return &decrypted
}
