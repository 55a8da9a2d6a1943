package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	roomCodeConstraint   = "rooms_code_key"
	roomMemberConstraint = "room_members_room_id_user_id_key"
)

// translateError maps driver errors onto the package sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case roomCodeConstraint:
			return ErrDuplicateCode
		case roomMemberConstraint:
			return ErrDuplicateMember
		}
	}
	return err
}
