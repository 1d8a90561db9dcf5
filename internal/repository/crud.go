package repository

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/store"
)

// Provider CRUD. Arguments are validated against the kind's descriptors
// before anything is persisted; the store's change signal then drives the
// binding rebuild. Local providers exist implicitly and cannot be managed
// here.

// AddProvider validates the arguments, persists the provider and returns
// its identity.
func (r *Repository) AddProvider(kind provider.Kind, name string, args map[string]string) (provider.Identifier, error) {
	if kind == provider.KindLocal {
		return provider.Identifier{}, fmt.Errorf("local providers cannot be created")
	}
	if err := provider.CheckArguments(kind, args); err != nil {
		return provider.Identifier{}, err
	}

	var (
		id  int64
		err error
	)
	switch kind {
	case provider.KindSubsonic:
		id, err = r.store.AddSubsonicProvider(store.SubsonicConfig{
			Name:                    name,
			URL:                     args["server"],
			Username:                args["username"],
			Password:                args["password"],
			UseLegacyAuthentication: args["use_legacy_authentication"] == "true",
		})
	case provider.KindJellyfin:
		id, err = r.store.AddJellyfinProvider(store.JellyfinConfig{
			Name:     name,
			URL:      args["server"],
			Username: args["username"],
			Password: args["password"],
		})
	case provider.KindQobuz:
		id, err = r.store.AddQobuzProvider(store.QobuzConfig{
			Name:     name,
			Email:    args["email"],
			Password: args["password"],
		})
	default:
		return provider.Identifier{}, fmt.Errorf("unknown provider kind %q", kind)
	}
	if err != nil {
		return provider.Identifier{}, err
	}

	identity := provider.Identifier{Kind: kind, InstanceID: id}
	log.Info().Stringer("provider", identity).Str("name", name).Msg("Added provider")
	if err := r.rebuild(); err != nil {
		return identity, err
	}
	return identity, nil
}

// UpdateProvider rewrites a provider's name and arguments.
func (r *Repository) UpdateProvider(id provider.Identifier, name string, args map[string]string) error {
	if id.Kind == provider.KindLocal {
		return fmt.Errorf("local providers cannot be updated")
	}
	if err := provider.CheckArguments(id.Kind, args); err != nil {
		return err
	}

	var err error
	switch id.Kind {
	case provider.KindSubsonic:
		err = r.store.UpdateSubsonicProvider(store.SubsonicConfig{
			ID:                      id.InstanceID,
			Name:                    name,
			URL:                     args["server"],
			Username:                args["username"],
			Password:                args["password"],
			UseLegacyAuthentication: args["use_legacy_authentication"] == "true",
		})
	case provider.KindJellyfin:
		err = r.store.UpdateJellyfinProvider(store.JellyfinConfig{
			ID:       id.InstanceID,
			Name:     name,
			URL:      args["server"],
			Username: args["username"],
			Password: args["password"],
		})
	case provider.KindQobuz:
		err = r.store.UpdateQobuzProvider(store.QobuzConfig{
			ID:       id.InstanceID,
			Name:     name,
			Email:    args["email"],
			Password: args["password"],
		})
	default:
		return fmt.Errorf("unknown provider kind %q", id.Kind)
	}
	if err != nil {
		return err
	}
	log.Info().Stringer("provider", id).Msg("Updated provider")
	return r.rebuild()
}

// DeleteProvider removes a provider and its live source.
func (r *Repository) DeleteProvider(id provider.Identifier) error {
	var err error
	switch id.Kind {
	case provider.KindLocal:
		return fmt.Errorf("local providers cannot be deleted")
	case provider.KindSubsonic:
		err = r.store.DeleteSubsonicProvider(id.InstanceID)
	case provider.KindJellyfin:
		err = r.store.DeleteJellyfinProvider(id.InstanceID)
	case provider.KindQobuz:
		err = r.store.DeleteQobuzProvider(id.InstanceID)
	default:
		return fmt.Errorf("unknown provider kind %q", id.Kind)
	}
	if err != nil {
		return err
	}
	log.Info().Stringer("provider", id).Msg("Deleted provider")
	return r.rebuild()
}
