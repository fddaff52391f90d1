// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"strings"

	"github.com/avessar/authstore/models"
)

// UserSelector names the unique column a user update, delete or get is keyed
// on. Only members of this fixed allow-list are ever interpolated into SQL;
// the selector value itself is always bound as a parameter.
type UserSelector string

const (
	UserByID    UserSelector = "id"
	UserByEmail UserSelector = "email"
	UserByPhone UserSelector = "phone_number"
)

// valid reports membership in the selector allow-list.
func (s UserSelector) valid() bool {
	switch s {
	case UserByID, UserByEmail, UserByPhone:
		return true
	}
	return false
}

// buildUserUpdateQuery dynamically builds the partial UPDATE statement for a
// user row.
//
// Only fields tagged Set in update contribute a SET clause, in the stable
// declaration order of [models.UserUpdate]; updated_at = now() is always
// included, so an update with zero set fields still succeeds and still
// bumps updated_at. Parameters are bound positionally in clause order, with
// the selector value as the final parameter. Soft-deleted rows are filtered
// out by the WHERE clause, and the statement RETURNs the canonical column
// list so the caller can verify exactly one row was touched.
func buildUserUpdateQuery(update models.UserUpdate, selector UserSelector, selectorValue any) (string, []any, error) {
	if !selector.valid() {
		return "", nil, fmt.Errorf("%w: unknown selector column %q", ErrBuildingSQLQuery, string(selector))
	}

	queryBuilder := new(strings.Builder)
	queryBuilder.WriteString("UPDATE auth.users\nSET updated_at = now()")

	args := make([]any, 0, 11)
	setClauses := make([]string, 0, 10)
	argIndex := 1

	if update.Role.IsSet() {
		setClauses = append(setClauses, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, update.Role.Value())
		argIndex++
	}

	if update.Email.IsSet() {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argIndex))
		args = append(args, update.Email.Value())
		argIndex++
	}

	if update.PasswordHash.IsSet() {
		setClauses = append(setClauses, fmt.Sprintf("password_hash = $%d", argIndex))
		args = append(args, update.PasswordHash.Value())
		argIndex++
	}

	if update.EmailConfirmedAt.IsSet() {
		setClauses = append(setClauses, fmt.Sprintf("email_confirmed_at = %s", tsParam(argIndex)))
		args = append(args, encodeTimePtr(update.EmailConfirmedAt.Value()))
		argIndex++
	}

	if update.PhoneNumberConfirmedAt.IsSet() {
		setClauses = append(setClauses, fmt.Sprintf("phone_number_confirmed_at = %s", tsParam(argIndex)))
		args = append(args, encodeTimePtr(update.PhoneNumberConfirmedAt.Value()))
		argIndex++
	}

	if update.LastSignIn.IsSet() {
		setClauses = append(setClauses, fmt.Sprintf("last_sign_in = %s", tsParam(argIndex)))
		args = append(args, encodeTimePtr(update.LastSignIn.Value()))
		argIndex++
	}

	if update.BannedUntil.IsSet() {
		setClauses = append(setClauses, fmt.Sprintf("banned_until = %s", tsParam(argIndex)))
		args = append(args, encodeTimePtr(update.BannedUntil.Value()))
		argIndex++
	}

	if update.PhoneNumber.IsSet() {
		setClauses = append(setClauses, fmt.Sprintf("phone_number = $%d", argIndex))
		args = append(args, update.PhoneNumber.Value())
		argIndex++
	}

	if update.AppMetadata.IsSet() {
		raw, err := encodeMetadata(update.AppMetadata.Value())
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		setClauses = append(setClauses, fmt.Sprintf("app_metadata = $%d::jsonb", argIndex))
		args = append(args, string(raw))
		argIndex++
	}

	if update.UserMetadata.IsSet() {
		raw, err := encodeMetadata(update.UserMetadata.Value())
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		setClauses = append(setClauses, fmt.Sprintf("user_metadata = $%d::jsonb", argIndex))
		args = append(args, string(raw))
		argIndex++
	}

	if len(setClauses) > 0 {
		queryBuilder.WriteString(", ")
		queryBuilder.WriteString(strings.Join(setClauses, ", "))
	}

	queryBuilder.WriteString(fmt.Sprintf("\nWHERE %s = $%d AND deleted_at IS NULL", string(selector), argIndex))
	queryBuilder.WriteString("\nRETURNING " + userColumnList + ";")

	args = append(args, selectorValue)

	return queryBuilder.String(), args, nil
}

// buildUserSoftDeleteQuery builds the soft-delete statement: the row keeps
// existing but gains a deleted_at marker, which every normal read and update
// filters on. Already-deleted rows cannot be deleted again.
func buildUserSoftDeleteQuery(selector UserSelector, selectorValue any) (string, []any, error) {
	if !selector.valid() {
		return "", nil, fmt.Errorf("%w: unknown selector column %q", ErrBuildingSQLQuery, string(selector))
	}

	query := fmt.Sprintf(`UPDATE auth.users
SET deleted_at = now(), updated_at = now()
WHERE %s = $1 AND deleted_at IS NULL
RETURNING %s;`, string(selector), userColumnList)

	return query, []any{selectorValue}, nil
}

// buildUserGetQuery builds the single-row user read. includeDeleted selects
// the admin-only path that ignores the soft-delete filter; normal reads
// treat soft-deleted rows as absent.
func buildUserGetQuery(selector UserSelector, selectorValue any, includeDeleted bool) (string, []any, error) {
	if !selector.valid() {
		return "", nil, fmt.Errorf("%w: unknown selector column %q", ErrBuildingSQLQuery, string(selector))
	}

	filter := " AND deleted_at IS NULL"
	if includeDeleted {
		filter = ""
	}

	query := fmt.Sprintf(`SELECT %s
FROM auth.users
WHERE %s = $1%s;`, userColumnList, string(selector), filter)

	return query, []any{selectorValue}, nil
}
