package store

import (
	"fmt"
	"net/netip"

	sq "github.com/Masterminds/squirrel"
)

// ListUsersParams is the paging and filtering input of the user listing.
// The optional filters are OR-combined: a row matches when any provided
// filter matches. Soft-deleted rows never appear.
type ListUsersParams struct {
	// Limit caps the number of returned rows. Zero means no cap.
	Limit uint64

	// Offset skips the first Offset rows in storage order.
	Offset uint64

	// ID, Email and PhoneNumber are optional equality filters,
	// OR-combined when more than one is present.
	ID          *string
	Email       *string
	PhoneNumber *string
}

// buildListUsersQuery assembles the dynamic listing query with squirrel.
// All values are bound as parameters; only allow-listed identifiers appear
// in the SQL text.
func buildListUsersQuery(params ListUsersParams) (string, []any, error) {
	builder := sq.Select(userColumns...).
		From("auth.users").
		Where("deleted_at IS NULL").
		PlaceholderFormat(sq.Dollar)

	filters := sq.Or{}
	if params.ID != nil {
		filters = append(filters, sq.Eq{"id": *params.ID})
	}
	if params.Email != nil {
		filters = append(filters, sq.Eq{"email": *params.Email})
	}
	if params.PhoneNumber != nil {
		filters = append(filters, sq.Eq{"phone_number": *params.PhoneNumber})
	}
	if len(filters) > 0 {
		builder = builder.Where(filters)
	}

	if params.Limit > 0 {
		builder = builder.Limit(params.Limit)
	}
	if params.Offset > 0 {
		builder = builder.Offset(params.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// GetSessionParams narrows a session read beyond the id: when IP or
// UserAgent are present the stored values must match exactly.
type GetSessionParams struct {
	IP        *netip.Addr
	UserAgent *string
}

// buildGetSessionQuery assembles the session read with its optional match
// filters and the trailing expiry probe column.
func buildGetSessionQuery(id string, params GetSessionParams) (string, []any) {
	query := `SELECT ` + sessionColumnList + `, ` + expiredExpr + `
		FROM auth.sessions
		WHERE id = $1`
	args := []any{id}
	argIndex := 2

	if params.IP != nil {
		query += fmt.Sprintf(" AND ip = $%d", argIndex)
		args = append(args, params.IP.String())
		argIndex++
	}

	if params.UserAgent != nil {
		query += fmt.Sprintf(" AND user_agent = $%d", argIndex)
		args = append(args, *params.UserAgent)
		argIndex++
	}

	return query + ";", args
}
