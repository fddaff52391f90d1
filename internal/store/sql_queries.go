// SPDX-License-Identifier: Apache-2.0

package store

import "strings"

// Canonical column lists. Each list is the single source of truth for its
// entity's column order: SELECT/RETURNING clauses are generated from it and
// the decoders scan destinations in exactly this order. Positions are never
// duplicated as bare indices anywhere else.
//
// Timestamp columns travel as epoch microseconds (see codec.go); uuid
// columns travel as text; metadata columns travel as JSON text.

// userColumns is the canonical column order for auth.users. It must stay in
// lockstep with userRow in decode.go.
var userColumns = []string{
	"id::text",
	tsCol("created_at"),
	tsCol("updated_at"),
	tsCol("deleted_at"),
	"role",
	"email",
	"password_hash",
	tsCol("email_confirmed_at"),
	tsCol("phone_number_confirmed_at"),
	tsCol("last_sign_in"),
	tsCol("banned_until"),
	"phone_number",
	"app_metadata::text",
	"user_metadata::text",
}

// sessionColumns is the canonical column order for auth.sessions. It must
// stay in lockstep with sessionRow in decode.go.
var sessionColumns = []string{
	"id::text",
	"user_id::text",
	tsCol("created_at"),
	tsCol("expires_at"),
	"ip",
	"user_agent",
}

// tokenColumns is the canonical column order for auth.one_time_tokens. It
// must stay in lockstep with tokenRow in decode.go.
var tokenColumns = []string{
	"user_id::text",
	"token_type",
	"token_hash",
	tsCol("created_at"),
	tsCol("expires_at"),
	tsCol("used_at"),
	tsCol("deleted_at"),
}

// cacheColumns is the canonical column order for auth.cache_entries. It must
// stay in lockstep with cacheRow in decode.go.
var cacheColumns = []string{
	"resource_type",
	"key",
	"value",
	tsCol("expires_at"),
}

var (
	userColumnList    = strings.Join(userColumns, ", ")
	sessionColumnList = strings.Join(sessionColumns, ", ")
	tokenColumnList   = strings.Join(tokenColumns, ", ")
	cacheColumnList   = strings.Join(cacheColumns, ", ")
)

// expiredExpr is the boolean expiry probe computed alongside every
// lazy-expiry read, so the expired/valid decision is made atomically with
// the read itself instead of comparing against now() in Go afterwards.
const expiredExpr = "(expires_at IS NOT NULL AND expires_at < now())"

var (
	createUser = `INSERT INTO auth.users (id, role, email, password_hash, phone_number, app_metadata, user_metadata)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)
		RETURNING ` + userColumnList + `;`

	createSession = `INSERT INTO auth.sessions (id, user_id, expires_at, ip, user_agent)
		VALUES ($1, $2, ` + tsParam(3) + `, $4, $5)
		RETURNING ` + sessionColumnList + `;`

	deleteSession = `DELETE FROM auth.sessions WHERE id = $1;`

	// reapSession is the detached cleanup issued after an expired read. The
	// expiry guard keeps a racing re-insert of the same id from being purged.
	reapSession = `DELETE FROM auth.sessions WHERE id = $1 AND ` + expiredExpr + `;`

	// createToken replaces any earlier token of the same type, so at most one
	// token per (user, type) is ever live.
	createToken = `INSERT INTO auth.one_time_tokens (user_id, token_type, token_hash, expires_at)
		VALUES ($1, $2, $3, ` + tsParam(4) + `)
		ON CONFLICT (user_id, token_type)
		DO UPDATE SET token_hash = excluded.token_hash, created_at = now(),
		              expires_at = excluded.expires_at, used_at = NULL, deleted_at = NULL
		RETURNING ` + tokenColumnList + `;`

	// Token usability predicate: unused, unrevoked, not yet expired.
	validateToken = `SELECT ` + tokenColumnList + `
		FROM auth.one_time_tokens
		WHERE user_id = $1 AND token_type = $2 AND token_hash = $3
		  AND used_at IS NULL AND deleted_at IS NULL AND expires_at > now();`

	useToken = `UPDATE auth.one_time_tokens
		SET used_at = now()
		WHERE user_id = $1 AND token_type = $2 AND token_hash = $3
		  AND used_at IS NULL AND deleted_at IS NULL AND expires_at > now();`

	deleteToken = `UPDATE auth.one_time_tokens
		SET deleted_at = now()
		WHERE user_id = $1 AND token_type = $2 AND token_hash = $3
		  AND deleted_at IS NULL;`

	setCacheEntry = `INSERT INTO auth.cache_entries (resource_type, key, value, expires_at)
		VALUES ($1, $2, $3, ` + tsParam(4) + `)
		ON CONFLICT (resource_type, key)
		DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at;`

	getCacheEntry = `SELECT ` + cacheColumnList + `, ` + expiredExpr + `
		FROM auth.cache_entries
		WHERE resource_type = $1 AND key = $2;`

	deleteCacheEntry = `DELETE FROM auth.cache_entries WHERE resource_type = $1 AND key = $2;`

	reapCacheEntry = `DELETE FROM auth.cache_entries
		WHERE resource_type = $1 AND key = $2 AND ` + expiredExpr + `;`
)
