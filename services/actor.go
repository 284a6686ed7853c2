package services

// Actor is the authenticated caller a service acts on behalf of
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// CanEdit reports whether the actor may change a resource owned by ownerID
func (a Actor) CanEdit(ownerID uint) bool {
	return a.IsAdmin || (a.UserID != 0 && a.UserID == ownerID)
}
