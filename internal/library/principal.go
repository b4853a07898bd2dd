package library

// Principal is the authenticated identity an operation runs under.
// The zero value is anonymous.
type Principal struct {
	UserID uint
	Email  string
	Name   string
}

// Authenticated reports whether the principal belongs to a signed-in admin.
func (p Principal) Authenticated() bool {
	return p.UserID != 0
}

func requireAuth(p Principal) error {
	if !p.Authenticated() {
		return ErrAuthRequired
	}
	return nil
}
