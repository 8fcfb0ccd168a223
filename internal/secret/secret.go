// Package secret supplies credentials to store connections without passing
// them through call arguments.
package secret

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
)

// DefaultPasswordEnv names the variable holding the relational store password.
const DefaultPasswordEnv = "SINGLESTORE_PASSWORD"

// ErrMissing is returned when a secret is unset or empty.
var ErrMissing = eris.New("secret: not set")

// Provider returns a secret at the moment it is needed.
type Provider interface {
	Secret(ctx context.Context) (string, error)
}

// Env reads a secret from a process environment variable on every call.
type Env struct {
	Name string
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// FromEnv returns an Env provider for the named variable.
func FromEnv(name string) Env {
	if name == "" {
		name = DefaultPasswordEnv
	}
	return Env{Name: name}
}

func (e Env) Secret(_ context.Context) (string, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(e.Name)
	if !ok || v == "" {
		return "", eris.Wrapf(ErrMissing, "secret: %s", e.Name)
	}
	return v, nil
}

// Static is a fixed secret, used when the caller already holds the value.
type Static string

func (s Static) Secret(_ context.Context) (string, error) {
	if s == "" {
		return "", eris.Wrap(ErrMissing, "secret: static value empty")
	}
	return string(s), nil
}
