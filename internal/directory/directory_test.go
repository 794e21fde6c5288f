package directory

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a two-page listing and counts calls.
type fakeSource struct {
	pages map[string]page
	calls int
	err   error
}

type page struct {
	users []RawUser
	next  string
}

func (f *fakeSource) ListUsers(_ context.Context, domain, pageToken string) ([]RawUser, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	p := f.pages[pageToken]
	return p.users, p.next, nil
}

func newTestSource() *fakeSource {
	return &fakeSource{pages: map[string]page{
		"": {
			users: []RawUser{{
				ID:           "1",
				PrimaryEmail: "a@example.com",
				Emails:       []string{"a@example.com", "a2@example.com"},
			}},
			next: "page2",
		},
		"page2": {
			users: []RawUser{{
				ID:           "2",
				PrimaryEmail: "b@example.com",
				Emails:       []string{"b@example.com"},
			}},
		},
	}}
}

func TestEmailsByUserID(t *testing.T) {
	r := New(newTestSource(), "example.com")
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		mode   Mode
		want   []string
	}{
		{"primary only", "1", PrimaryOnly, []string{"a@example.com"}},
		{"aliases only", "1", AliasesOnly, []string{"a2@example.com"}},
		{"primary plus aliases", "1", PrimaryPlusAliases, []string{"a@example.com", "a2@example.com"}},
		{"no aliases", "2", AliasesOnly, nil},
		{"unknown user", "999", PrimaryPlusAliases, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.EmailsByUserID(ctx, tc.userID, tc.mode)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPrimaryAddressExcludedFromAliases(t *testing.T) {
	r := New(newTestSource(), "example.com")
	aliases, err := r.EmailsByUserID(context.Background(), "1", AliasesOnly)
	require.NoError(t, err)
	assert.NotContains(t, aliases, "a@example.com")
}

func TestPrimaryPlusAliasesStartsWithPrimary(t *testing.T) {
	r := New(newTestSource(), "example.com")
	ctx := context.Background()

	ids, err := r.UserIDs(ctx)
	require.NoError(t, err)
	for _, id := range ids {
		primary, err := r.PrimaryEmailByUserID(ctx, id)
		require.NoError(t, err)
		all, err := r.EmailsByUserID(ctx, id, PrimaryPlusAliases)
		require.NoError(t, err)
		require.NotEmpty(t, all)
		assert.Equal(t, primary, all[0])

		aliases, err := r.EmailsByUserID(ctx, id, AliasesOnly)
		require.NoError(t, err)
		rest := all[1:]
		require.Len(t, rest, len(aliases))
		for i := range aliases {
			assert.Equal(t, aliases[i], rest[i])
		}
	}
}

func TestUserIDByEmailIsLeftInverse(t *testing.T) {
	r := New(newTestSource(), "example.com")
	ctx := context.Background()

	ids, err := r.UserIDs(ctx)
	require.NoError(t, err)
	for _, id := range ids {
		for _, mode := range []Mode{PrimaryOnly, AliasesOnly} {
			emails, err := r.EmailsByUserID(ctx, id, mode)
			require.NoError(t, err)
			for _, email := range emails {
				got, err := r.UserIDByEmail(ctx, email, mode)
				require.NoError(t, err)
				assert.Equal(t, id, got, "mode %v email %v", mode, email)
			}
		}
	}
}

func TestUserIDByEmailModeRestriction(t *testing.T) {
	r := New(newTestSource(), "example.com")
	ctx := context.Background()

	got, err := r.UserIDByEmail(ctx, "a2@example.com", PrimaryOnly)
	require.NoError(t, err)
	assert.Empty(t, got, "alias must not match under PrimaryOnly")

	got, err = r.UserIDByEmail(ctx, "a@example.com", AliasesOnly)
	require.NoError(t, err)
	assert.Empty(t, got, "primary must not match under AliasesOnly")

	got, err = r.UserIDByEmail(ctx, "a2@example.com", PrimaryPlusAliases)
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func TestEmailsConcatenatesInRosterOrder(t *testing.T) {
	r := New(newTestSource(), "example.com")
	got, err := r.Emails(context.Background(), PrimaryPlusAliases)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "a2@example.com", "b@example.com"}, got)
}

func TestUserIDs(t *testing.T) {
	r := New(newTestSource(), "example.com")
	got, err := r.UserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestInboxesByUserID(t *testing.T) {
	r := New(newTestSource(), "example.com")
	ctx := context.Background()

	got, err := r.InboxesByUserID(ctx, ", ", PrimaryPlusAliases)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"1": "a@example.com, a2@example.com",
		"2": "b@example.com",
	}, got)

	inverse, err := r.UserIDByInboxes(ctx, ", ", PrimaryPlusAliases)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"a@example.com, a2@example.com": "1",
		"b@example.com":                 "2",
	}, inverse)
}

func TestInvalidModeRejectedEverywhere(t *testing.T) {
	r := New(newTestSource(), "example.com")
	ctx := context.Background()
	bad := Mode(42)

	_, err := r.EmailsByUserID(ctx, "1", bad)
	assert.ErrorIs(t, errors.Cause(err), ErrInvalidMode)

	_, err = r.Emails(ctx, bad)
	assert.ErrorIs(t, errors.Cause(err), ErrInvalidMode)

	_, err = r.UserIDByEmail(ctx, "a@example.com", bad)
	assert.ErrorIs(t, errors.Cause(err), ErrInvalidMode)

	_, err = r.InboxesByUserID(ctx, ", ", bad)
	assert.ErrorIs(t, errors.Cause(err), ErrInvalidMode)

	_, err = r.UserIDByInboxes(ctx, ", ", bad)
	assert.ErrorIs(t, errors.Cause(err), ErrInvalidMode)
}

func TestRosterFetchedOnce(t *testing.T) {
	src := newTestSource()
	r := New(src, "example.com")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := r.UserIDs(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.calls, "one call per page, once per resolver lifetime")
}

func TestFailedResolutionRetries(t *testing.T) {
	src := newTestSource()
	src.err = errors.New("listing unavailable")
	r := New(src, "example.com")
	ctx := context.Background()

	_, err := r.UserIDs(ctx)
	require.Error(t, err)

	// No partial roster was memoized; the next query resolves.
	src.err = nil
	ids, err := r.UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)
}
