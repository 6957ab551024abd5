package service

import (
	"context"
	"errors"

	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/repository"
)

// Role is the fixed three-level hierarchy. Ordering is meaningful:
// viewer < editor < owner, so HasRole is a plain ordinal comparison.
type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleEditor
	RoleOwner
)

// String returns the wire/database form of a role.
func (r Role) String() string {
	switch r {
	case RoleViewer:
		return "viewer"
	case RoleEditor:
		return "editor"
	case RoleOwner:
		return "owner"
	default:
		return ""
	}
}

// ParseRole maps a stored or submitted role name. Unknown names map to
// RoleNone.
func ParseRole(s string) Role {
	switch s {
	case "viewer":
		return RoleViewer
	case "editor":
		return RoleEditor
	case "owner":
		return RoleOwner
	default:
		return RoleNone
	}
}

// HasRole reports whether an actual role satisfies a required one.
func HasRole(actual, required Role) bool {
	return actual >= required
}

// AlbumStore and MemberStore are the repository slices the resolver needs.
type AlbumStore interface {
	GetByID(ctx context.Context, id uint64) (model.Album, error)
}

type MemberStore interface {
	GetRole(ctx context.Context, albumID, userID uint64) (string, error)
	Upsert(ctx context.Context, albumID, userID uint64, role string) error
	Delete(ctx context.Context, albumID, userID uint64) error
	List(ctx context.Context, albumID uint64) ([]model.Membership, error)
}

// RoleResolver is the single place every authorization decision routes
// through. Keeping the owner-immutability and joint-owner rules here means
// no handler can accidentally bypass them.
type RoleResolver struct {
	albums  AlbumStore
	members MemberStore
}

func NewRoleResolver(albums AlbumStore, members MemberStore) *RoleResolver {
	return &RoleResolver{albums: albums, members: members}
}

// RoleOf resolves a user's effective role on an album: explicit membership
// row first (authoritative), else the album's recorded original owner, else
// implicit viewer on public albums. userID 0 stands for an anonymous caller
// and can only reach the public fallback.
func (r *RoleResolver) RoleOf(ctx context.Context, userID, albumID uint64) (Role, error) {
	album, err := r.albums.GetByID(ctx, albumID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RoleNone, ErrNotFound
		}
		return RoleNone, err
	}
	if userID != 0 {
		if role, err := r.members.GetRole(ctx, albumID, userID); err == nil {
			return ParseRole(role), nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return RoleNone, err
		}
		if album.OwnerID == userID {
			return RoleOwner, nil
		}
	}
	if album.IsPublic {
		return RoleViewer, nil
	}
	return RoleNone, nil
}

// GuestRole resolves a guest token's role on an album: viewer when the
// album is in the token's scope, none otherwise. The scope never grants
// more than viewer, regardless of the album's own settings.
func GuestRole(guestAlbums []uint64, albumID uint64) Role {
	for _, id := range guestAlbums {
		if id == albumID {
			return RoleViewer
		}
	}
	return RoleNone
}

// SetMemberRole grants or changes a member's explicit role on behalf of
// actorID. Rules enforced here and nowhere else:
//
//   - the original owner's role can never be touched, by anyone;
//   - only owners may manage members at all;
//   - a joint owner's role may only be changed by the original owner, so
//     joint owners can never demote each other.
func (r *RoleResolver) SetMemberRole(ctx context.Context, actorID, albumID, targetID uint64, role Role) error {
	if role == RoleNone {
		return ErrForbidden
	}
	album, err := r.albums.GetByID(ctx, albumID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if targetID == album.OwnerID {
		return ErrForbidden // original owner is immutable
	}
	actorRole, err := r.RoleOf(ctx, actorID, albumID)
	if err != nil {
		return err
	}
	if !HasRole(actorRole, RoleOwner) {
		return ErrForbidden
	}
	targetRole, err := r.memberRole(ctx, albumID, targetID)
	if err != nil {
		return err
	}
	if targetRole == RoleOwner && actorID != album.OwnerID {
		return ErrForbidden // joint owners cannot touch each other
	}
	return r.members.Upsert(ctx, albumID, targetID, role.String())
}

// RemoveMember deletes a member's explicit role row. The original owner can
// never be removed; joint owners are removable only by the original owner;
// any other member may also remove themselves (leave).
func (r *RoleResolver) RemoveMember(ctx context.Context, actorID, albumID, targetID uint64) error {
	album, err := r.albums.GetByID(ctx, albumID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if targetID == album.OwnerID {
		return ErrForbidden
	}
	targetRole, err := r.memberRole(ctx, albumID, targetID)
	if err != nil {
		return err
	}
	if targetRole == RoleOwner && actorID != album.OwnerID {
		return ErrForbidden
	}
	if actorID != targetID {
		actorRole, err := r.RoleOf(ctx, actorID, albumID)
		if err != nil {
			return err
		}
		if !HasRole(actorRole, RoleOwner) {
			return ErrForbidden
		}
	}
	return r.members.Delete(ctx, albumID, targetID)
}

// Members lists an album's explicit membership rows.
func (r *RoleResolver) Members(ctx context.Context, albumID uint64) ([]model.Membership, error) {
	return r.members.List(ctx, albumID)
}

func (r *RoleResolver) memberRole(ctx context.Context, albumID, targetID uint64) (Role, error) {
	role, err := r.members.GetRole(ctx, albumID, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RoleNone, nil
		}
		return RoleNone, err
	}
	return ParseRole(role), nil
}
