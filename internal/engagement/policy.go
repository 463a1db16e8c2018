package engagement

// Role is the marketplace role of an actor.
type Role string

const (
	RoleArtist Role = "artist"
	RoleClient Role = "client"
	RoleSystem Role = "system"
)

// Valid reports whether r can be held by a signed-up profile.
func (r Role) Valid() bool {
	return r == RoleArtist || r == RoleClient
}

// Actor is the explicit identity passed into every engine operation.
type Actor struct {
	ID   uint
	Role Role
}

// System is the actor used by scheduled triggers.
var System = Actor{Role: RoleSystem}

func Artist(id uint) Actor { return Actor{ID: id, Role: RoleArtist} }
func Client(id uint) Actor { return Actor{ID: id, Role: RoleClient} }

// Subject is the ownership view of a record: who created it and who sits
// on the other side of it.
type Subject struct {
	Kind           Kind
	ID             uint
	OwnerID        uint
	CounterpartyID uint
}

// Plays reports whether the actor occupies party p on subject.
func (a Actor) Plays(s Subject, p Party) bool {
	switch p {
	case PartySystem:
		return a.Role == RoleSystem
	case PartyOwner:
		return a.Role != RoleSystem && a.ID != 0 && a.ID == s.OwnerID
	case PartyCounterparty:
		return a.Role != RoleSystem && a.ID != 0 && a.ID == s.CounterpartyID
	}
	return false
}

// PlaysAny reports whether the actor occupies at least one of parties.
func (a Actor) PlaysAny(s Subject, parties []Party) bool {
	for _, p := range parties {
		if a.Plays(s, p) {
			return true
		}
	}
	return false
}

// RequireRole fails with Unauthorized unless the actor holds role.
func RequireRole(a Actor, role Role, kind Kind, id uint) error {
	if a.Role != role || a.ID == 0 {
		return Unauthorized(kind, id, "", "").WithMessage("actor must be a " + string(role))
	}
	return nil
}
