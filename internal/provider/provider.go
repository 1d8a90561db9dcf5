// Package provider describes configured media sources: their kind, stable
// identity, display metadata and the typed arguments each kind requires.
package provider

import "fmt"

// Kind enumerates the supported source kinds.
type Kind int

const (
	KindLocal Kind = iota
	KindSubsonic
	KindJellyfin
	KindQobuz
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindSubsonic:
		return "subsonic"
	case KindJellyfin:
		return "jellyfin"
	case KindQobuz:
		return "qobuz"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseKind maps a stored kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "local":
		return KindLocal, nil
	case "subsonic":
		return KindSubsonic, nil
	case "jellyfin":
		return KindJellyfin, nil
	case "qobuz":
		return KindQobuz, nil
	default:
		return 0, fmt.Errorf("unknown provider kind %q", s)
	}
}

// Identifier is the stable identity of one configured provider instance.
// InstanceID is scoped per kind, so (Kind, InstanceID) is globally unique.
type Identifier struct {
	Kind       Kind
	InstanceID int64
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s/%d", id.Kind, id.InstanceID)
}

// Provider is one configured source instance as shown to the user.
type Provider struct {
	Identifier Identifier
	Name       string
	Visible    bool
}
