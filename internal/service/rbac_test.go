package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/repository"
)

type fakeAlbums struct {
	rows map[uint64]model.Album
}

func (f *fakeAlbums) GetByID(_ context.Context, id uint64) (model.Album, error) {
	a, ok := f.rows[id]
	if !ok {
		return model.Album{}, repository.ErrNotFound
	}
	return a, nil
}

type memberKey struct{ albumID, userID uint64 }

type fakeMembers struct {
	rows map[memberKey]string
}

func (f *fakeMembers) GetRole(_ context.Context, albumID, userID uint64) (string, error) {
	role, ok := f.rows[memberKey{albumID, userID}]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

func (f *fakeMembers) Upsert(_ context.Context, albumID, userID uint64, role string) error {
	f.rows[memberKey{albumID, userID}] = role
	return nil
}

func (f *fakeMembers) Delete(_ context.Context, albumID, userID uint64) error {
	delete(f.rows, memberKey{albumID, userID})
	return nil
}

func (f *fakeMembers) List(_ context.Context, albumID uint64) ([]model.Membership, error) {
	var out []model.Membership
	for k, role := range f.rows {
		if k.albumID == albumID {
			out = append(out, model.Membership{AlbumID: k.albumID, UserID: k.userID, Role: role})
		}
	}
	return out, nil
}

const (
	originalOwner = uint64(1)
	jointOwnerA   = uint64(2)
	jointOwnerB   = uint64(3)
	editor        = uint64(4)
	viewer        = uint64(5)
	outsider      = uint64(9)

	privateAlbum = uint64(10)
	publicAlbum  = uint64(11)
)

func newTestResolver() (*RoleResolver, *fakeMembers) {
	albums := &fakeAlbums{rows: map[uint64]model.Album{
		privateAlbum: {ID: privateAlbum, OwnerID: originalOwner},
		publicAlbum:  {ID: publicAlbum, OwnerID: originalOwner, IsPublic: true},
	}}
	members := &fakeMembers{rows: map[memberKey]string{
		{privateAlbum, jointOwnerA}: "owner",
		{privateAlbum, jointOwnerB}: "owner",
		{privateAlbum, editor}:      "editor",
		{privateAlbum, viewer}:      "viewer",
	}}
	return NewRoleResolver(albums, members), members
}

func TestRoleParsing(t *testing.T) {
	assert.Equal(t, RoleOwner, ParseRole("owner"))
	assert.Equal(t, RoleEditor, ParseRole("editor"))
	assert.Equal(t, RoleViewer, ParseRole("viewer"))
	assert.Equal(t, RoleNone, ParseRole("admin"))
	assert.Equal(t, RoleNone, ParseRole(""))
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, HasRole(RoleOwner, RoleViewer))
	assert.True(t, HasRole(RoleEditor, RoleEditor))
	assert.False(t, HasRole(RoleViewer, RoleEditor))
	assert.False(t, HasRole(RoleNone, RoleViewer))
}

func TestRoleOf(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	cases := []struct {
		name   string
		userID uint64
		album  uint64
		want   Role
	}{
		{"original owner", originalOwner, privateAlbum, RoleOwner},
		{"joint owner", jointOwnerA, privateAlbum, RoleOwner},
		{"editor", editor, privateAlbum, RoleEditor},
		{"viewer", viewer, privateAlbum, RoleViewer},
		{"outsider on private", outsider, privateAlbum, RoleNone},
		{"anonymous on private", 0, privateAlbum, RoleNone},
		{"outsider on public", outsider, publicAlbum, RoleViewer},
		{"anonymous on public", 0, publicAlbum, RoleViewer},
		{"owner of public album", originalOwner, publicAlbum, RoleOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.RoleOf(ctx, tc.userID, tc.album)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRoleOfUnknownAlbum(t *testing.T) {
	r, _ := newTestResolver()
	_, err := r.RoleOf(context.Background(), originalOwner, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGuestRole(t *testing.T) {
	scope := []uint64{privateAlbum}
	assert.Equal(t, RoleViewer, GuestRole(scope, privateAlbum))
	assert.Equal(t, RoleNone, GuestRole(scope, publicAlbum))
	assert.Equal(t, RoleNone, GuestRole(nil, privateAlbum))
}

func TestSetMemberRole(t *testing.T) {
	r, members := newTestResolver()
	ctx := context.Background()

	// Owners grant roles.
	require.NoError(t, r.SetMemberRole(ctx, originalOwner, privateAlbum, outsider, RoleEditor))
	assert.Equal(t, "editor", members.rows[memberKey{privateAlbum, outsider}])

	// A joint owner can manage ordinary members too.
	require.NoError(t, r.SetMemberRole(ctx, jointOwnerA, privateAlbum, viewer, RoleEditor))

	// Editors and viewers cannot manage members.
	assert.ErrorIs(t, r.SetMemberRole(ctx, editor, privateAlbum, outsider, RoleViewer), ErrForbidden)
	assert.ErrorIs(t, r.SetMemberRole(ctx, viewer, privateAlbum, outsider, RoleViewer), ErrForbidden)

	// Granting "none" is not how removal works.
	assert.ErrorIs(t, r.SetMemberRole(ctx, originalOwner, privateAlbum, outsider, RoleNone), ErrForbidden)

	assert.ErrorIs(t, r.SetMemberRole(ctx, originalOwner, 999, outsider, RoleViewer), ErrNotFound)
}

func TestOriginalOwnerIsImmutable(t *testing.T) {
	r, _ := newTestResolver()
	ctx := context.Background()

	// Nobody can change or remove the original owner, themselves included.
	assert.ErrorIs(t, r.SetMemberRole(ctx, jointOwnerA, privateAlbum, originalOwner, RoleViewer), ErrForbidden)
	assert.ErrorIs(t, r.SetMemberRole(ctx, originalOwner, privateAlbum, originalOwner, RoleEditor), ErrForbidden)
	assert.ErrorIs(t, r.RemoveMember(ctx, jointOwnerA, privateAlbum, originalOwner), ErrForbidden)
	assert.ErrorIs(t, r.RemoveMember(ctx, originalOwner, privateAlbum, originalOwner), ErrForbidden)
}

func TestJointOwnerRules(t *testing.T) {
	r, members := newTestResolver()
	ctx := context.Background()

	// Joint owners cannot demote or remove each other.
	assert.ErrorIs(t, r.SetMemberRole(ctx, jointOwnerA, privateAlbum, jointOwnerB, RoleViewer), ErrForbidden)
	assert.ErrorIs(t, r.RemoveMember(ctx, jointOwnerA, privateAlbum, jointOwnerB), ErrForbidden)

	// The original owner can.
	require.NoError(t, r.SetMemberRole(ctx, originalOwner, privateAlbum, jointOwnerA, RoleEditor))
	assert.Equal(t, "editor", members.rows[memberKey{privateAlbum, jointOwnerA}])
	require.NoError(t, r.RemoveMember(ctx, originalOwner, privateAlbum, jointOwnerB))
	_, ok := members.rows[memberKey{privateAlbum, jointOwnerB}]
	assert.False(t, ok)
}

func TestRemoveMember(t *testing.T) {
	r, members := newTestResolver()
	ctx := context.Background()

	// Owners remove ordinary members.
	require.NoError(t, r.RemoveMember(ctx, jointOwnerA, privateAlbum, editor))
	_, ok := members.rows[memberKey{privateAlbum, editor}]
	assert.False(t, ok)

	// Non-owners cannot remove others.
	assert.ErrorIs(t, r.RemoveMember(ctx, viewer, privateAlbum, jointOwnerA), ErrForbidden)
}

func TestMemberCanLeave(t *testing.T) {
	r, members := newTestResolver()
	ctx := context.Background()

	require.NoError(t, r.RemoveMember(ctx, viewer, privateAlbum, viewer))
	_, ok := members.rows[memberKey{privateAlbum, viewer}]
	assert.False(t, ok)
}
