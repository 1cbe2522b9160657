package principal

import "strings"

const (
	// GuestSentinel is the stored owner id for a guest without a session id.
	GuestSentinel = "guest"
	guestPrefix   = "guest:"
)

// Owner identifies who submitted a game. It is either an AuthenticatedOwner
// or a GuestOwner; no other implementations exist.
type Owner interface {
	// OwnerID is the value persisted on records.
	OwnerID() string
	isOwner()
}

// AuthenticatedOwner is a signed-in user resolved by the upstream gateway.
type AuthenticatedOwner struct {
	ID string
}

func (o AuthenticatedOwner) OwnerID() string { return o.ID }
func (AuthenticatedOwner) isOwner()          {}

// GuestOwner is an unauthenticated caller. Guests never accumulate puzzles.
type GuestOwner struct {
	SessionID string
}

func (o GuestOwner) OwnerID() string {
	if o.SessionID == "" {
		return GuestSentinel
	}
	return guestPrefix + o.SessionID
}

func (GuestOwner) isOwner() {}

// Parse rebuilds an Owner from a persisted owner id.
func Parse(ownerID string) Owner {
	id := strings.TrimSpace(ownerID)
	switch {
	case id == "":
		return GuestOwner{}
	case IsGuestID(id):
		if id == GuestSentinel {
			return GuestOwner{}
		}
		return GuestOwner{SessionID: strings.TrimPrefix(id, guestPrefix)}
	default:
		return AuthenticatedOwner{ID: id}
	}
}

// IsGuest reports whether o is a guest.
func IsGuest(o Owner) bool {
	_, ok := o.(GuestOwner)
	return ok
}

// IsGuestID reports whether id is a persisted guest owner id.
func IsGuestID(id string) bool {
	return id == GuestSentinel || strings.HasPrefix(id, guestPrefix)
}
