// SPDX-License-Identifier: Apache-2.0

package store

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func Test_buildListUsersQuery_NoFilters(t *testing.T) {
	query, args, err := buildListUsersQuery(ListUsersParams{})
	require.NoError(t, err)

	require.Contains(t, query, "FROM auth.users")
	require.Contains(t, query, "deleted_at IS NULL")
	require.NotContains(t, query, "OR")
	require.NotContains(t, query, "LIMIT")
	require.NotContains(t, query, "OFFSET")
	require.Empty(t, args)
}

func Test_buildListUsersQuery_FiltersAreORCombined(t *testing.T) {
	query, args, err := buildListUsersQuery(ListUsersParams{
		Email:       strPtr("a@b.c"),
		PhoneNumber: strPtr("+15551234567"),
	})
	require.NoError(t, err)

	require.Contains(t, query, "email = $1")
	require.Contains(t, query, "phone_number = $2")
	require.Contains(t, query, " OR ")
	require.Equal(t, []any{"a@b.c", "+15551234567"}, args)
}

func Test_buildListUsersQuery_Paging(t *testing.T) {
	query, _, err := buildListUsersQuery(ListUsersParams{Limit: 25, Offset: 50})
	require.NoError(t, err)

	require.Contains(t, query, "LIMIT 25")
	require.Contains(t, query, "OFFSET 50")
}

func Test_buildGetSessionQuery_IDOnly(t *testing.T) {
	query, args := buildGetSessionQuery("sess-1", GetSessionParams{})

	require.Contains(t, query, "FROM auth.sessions")
	require.Contains(t, query, "WHERE id = $1")
	require.Contains(t, query, "expires_at < now()")
	require.NotContains(t, query, "user_agent = ")
	require.Equal(t, []any{"sess-1"}, args)
}

func Test_buildGetSessionQuery_MatchFilters(t *testing.T) {
	ip := netip.MustParseAddr("192.0.2.10")
	ua := "test-agent/1.0"

	query, args := buildGetSessionQuery("sess-1", GetSessionParams{IP: &ip, UserAgent: &ua})

	require.Contains(t, query, "AND ip = $2")
	require.Contains(t, query, "AND user_agent = $3")
	require.Equal(t, []any{"sess-1", "192.0.2.10", ua}, args)
}
