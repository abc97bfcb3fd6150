package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/johnrichard23/connectedin/internal/data/pgxutil"
	"github.com/johnrichard23/connectedin/internal/domain/model"
	apperrors "github.com/johnrichard23/connectedin/internal/errors"
	"github.com/johnrichard23/connectedin/internal/ports"
)

// MsgChurchNotFound is the message clients see for a missing church.
const MsgChurchNotFound = "Church not found"

const (
	churchInsertQuery = `
		INSERT INTO churches (id, doc, created_at, updated_at)
		VALUES ($1, $2::jsonb, $3, $3)
		RETURNING doc`

	churchGetByIDQuery = `SELECT doc FROM churches WHERE id = $1`

	churchListQuery = `SELECT doc FROM churches ORDER BY created_at DESC, id`

	churchLockQuery = `SELECT doc FROM churches WHERE id = $1 FOR UPDATE`

	churchUpdateQuery = `
		UPDATE churches
		SET doc = $2::jsonb, updated_at = $3
		WHERE id = $1`
)

// ChurchRepo stores church documents in Postgres as JSONB.
type ChurchRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.ChurchRepository = (*ChurchRepo)(nil)

// NewChurchRepo creates a new ChurchRepo with real time provider.
func NewChurchRepo(db *sql.DB) *ChurchRepo {
	return &ChurchRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewChurchRepoWithTimeProvider creates a new ChurchRepo with a custom time provider (useful for tests).
func NewChurchRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ChurchRepo {
	return &ChurchRepo{DB: db, timeProvider: tp}
}

// Create assigns an id and timestamps and inserts the church.
func (r *ChurchRepo) Create(ctx context.Context, req model.CreateChurchRequest) (*model.Church, error) {
	now := r.timeProvider.Now().UnixMilli()
	church := req.NewChurch(uuid.NewString(), now)

	doc, err := json.Marshal(church)
	if err != nil {
		return nil, fmt.Errorf("marshal church: %w", err)
	}

	out, err := r.queryOne(ctx, churchInsertQuery, church.ID, doc, now)
	if err != nil {
		return nil, fmt.Errorf("create church: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// GetByID returns the church or a NotFound AppError.
func (r *ChurchRepo) GetByID(ctx context.Context, id string) (*model.Church, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound(MsgChurchNotFound)
	}
	out, err := r.queryOne(ctx, churchGetByIDQuery, id)
	if err != nil {
		return nil, r.mapLookupErr("get church", err)
	}
	return out, nil
}

// List returns every church, newest first.
func (r *ChurchRepo) List(ctx context.Context) ([]*model.Church, error) {
	var out []*model.Church
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, churchListQuery)
		if err != nil {
			return err
		}
		churches, err := pgx.CollectRows(rows, pgx.RowTo[model.Church])
		if err != nil {
			return err
		}
		out = make([]*model.Church, 0, len(churches))
		for i := range churches {
			out = append(out, &churches[i])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list churches: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Update merges req into the stored document and refreshes updatedAt.
// The merged document must still decode as a church; otherwise nothing is
// written and a validation AppError is returned.
func (r *ChurchRepo) Update(ctx context.Context, id string, req model.UpdateChurchRequest) (*model.Church, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound(MsgChurchNotFound)
	}
	now := r.timeProvider.Now().UnixMilli()

	var out model.Church
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			var stored []byte
			if err := tx.QueryRow(ctx, churchLockQuery, id).Scan(&stored); err != nil {
				return err
			}

			merged, err := req.Apply(stored, now)
			if err != nil {
				return err
			}
			doc, err := json.Marshal(merged)
			if err != nil {
				return fmt.Errorf("marshal church: %w", err)
			}
			if _, err := tx.Exec(ctx, churchUpdateQuery, id, doc, now); err != nil {
				return err
			}
			out = merged
			return nil
		})
	})
	if errors.Is(err, model.ErrInvalidPatch) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	if err != nil {
		return nil, r.mapLookupErr("update church", err)
	}
	return &out, nil
}

func (r *ChurchRepo) queryOne(ctx context.Context, query string, args ...any) (*model.Church, error) {
	var out model.Church
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowTo[model.Church])
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ChurchRepo) mapLookupErr(op string, err error) error {
	mapped := apperrors.MapDBError(err)
	if apperrors.IsNotFound(mapped) {
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, MsgChurchNotFound)
	}
	return fmt.Errorf("%s: %w", op, mapped)
}
