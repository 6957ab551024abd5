package model

import "time"

// Album mirrors the `albums` table. OwnerID is the immutable original
// owner, recorded on the album itself and distinct from the membership
// table; no mutation path may demote or remove that user. InviteCode is the
// shareable code guests exchange for a scoped guest token.
type Album struct {
	ID         uint64    // albums.id
	OwnerID    uint64    // albums.owner_id (original owner, immutable)
	Title      string    // albums.title
	IsPublic   bool      // albums.is_public
	InviteCode string    // albums.invite_code
	CreatedAt  time.Time // albums.created_at
	UpdatedAt  time.Time // albums.updated_at
}

// Membership mirrors the `album_members` table: one row per (album, user)
// with an explicit role. Multiple owners are permitted (joint owners); the
// original owner needs no row at all.
type Membership struct {
	AlbumID   uint64    // album_members.album_id
	UserID    uint64    // album_members.user_id
	Role      string    // album_members.role: viewer | editor | owner
	CreatedAt time.Time // album_members.created_at
}
