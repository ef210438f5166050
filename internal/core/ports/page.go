package ports

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a limit/offset window over a list.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
