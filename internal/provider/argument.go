package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// ArgumentType is the value type of one provider argument.
type ArgumentType int

const (
	ArgumentString ArgumentType = iota
	ArgumentBool
)

// Argument describes one configuration field a provider kind requires.
// Hidden arguments hold secrets and must never be logged or echoed.
type Argument struct {
	Key          string
	Name         string
	Type         ArgumentType
	Required     bool
	Hidden       bool
	DefaultValue string
	Validate     func(value string) error
}

// ValidateURL rejects values that do not parse as absolute http(s) URLs.
func ValidateURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL is missing a host")
	}
	return nil
}

// Arguments returns the argument descriptors for a provider kind, in the
// order they should be presented.
func Arguments(kind Kind) []Argument {
	switch kind {
	case KindLocal:
		return []Argument{
			{Key: "path", Name: "Music directory", Type: ArgumentString, Required: true},
		}
	case KindSubsonic:
		return []Argument{
			{Key: "server", Name: "Server URL", Type: ArgumentString, Required: true, Validate: ValidateURL},
			{Key: "username", Name: "Username", Type: ArgumentString, Required: true},
			{Key: "password", Name: "Password", Type: ArgumentString, Required: true, Hidden: true},
			{Key: "use_legacy_authentication", Name: "Use legacy authentication", Type: ArgumentBool, DefaultValue: "false"},
		}
	case KindJellyfin:
		return []Argument{
			{Key: "server", Name: "Server URL", Type: ArgumentString, Required: true, Validate: ValidateURL},
			{Key: "username", Name: "Username", Type: ArgumentString, Required: true},
			{Key: "password", Name: "Password", Type: ArgumentString, Required: true, Hidden: true},
		}
	case KindQobuz:
		return []Argument{
			{Key: "email", Name: "Email", Type: ArgumentString, Required: true},
			{Key: "password", Name: "Password", Type: ArgumentString, Required: true, Hidden: true},
		}
	default:
		return nil
	}
}

// CheckArguments validates values against the kind's descriptors: every
// required argument must be present and non-empty, and typed validators
// must pass. Unknown keys are rejected.
func CheckArguments(kind Kind, values map[string]string) error {
	descriptors := Arguments(kind)
	known := make(map[string]Argument, len(descriptors))
	for _, d := range descriptors {
		known[d.Key] = d
	}
	for key := range values {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("unknown argument %q for %s provider", key, kind)
		}
	}
	for _, d := range descriptors {
		value, ok := values[d.Key]
		if !ok || strings.TrimSpace(value) == "" {
			if d.Required {
				return fmt.Errorf("missing required argument %q", d.Key)
			}
			continue
		}
		if d.Type == ArgumentBool && value != "true" && value != "false" {
			return fmt.Errorf("argument %q must be true or false, got %q", d.Key, value)
		}
		if d.Validate != nil {
			if err := d.Validate(value); err != nil {
				return fmt.Errorf("argument %q: %w", d.Key, err)
			}
		}
	}
	return nil
}
