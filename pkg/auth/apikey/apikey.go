// Package apikey authenticates static API keys, such as Moodle web service
// tokens issued to an integration. Only SHA-256 digests of the keys are
// kept in memory.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"slices"

	"github.com/rhuss/coursesearch/pkg/auth"
)

// Key is a configured API key and the identity it stands for.
type Key struct {
	Secret   string
	Identity auth.Identity
}

type entry struct {
	digest   [sha256.Size]byte
	identity auth.Identity
}

// Authenticator accepts requests presenting one of its keys.
type Authenticator struct {
	entries []entry
}

// New returns an authenticator for keys. Keys with an empty secret are
// ignored.
func New(keys ...Key) *Authenticator {
	a := &Authenticator{entries: make([]entry, 0, len(keys))}
	for _, k := range keys {
		if k.Secret == "" {
			continue
		}
		a.entries = append(a.entries, entry{
			digest:   sha256.Sum256([]byte(k.Secret)),
			identity: k.Identity,
		})
	}
	return a
}

// Authenticate abstains when no token is presented and rejects tokens that
// match no key. Every entry is compared so the time taken does not depend
// on which key matched.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.Token(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if token == "" {
		return auth.Rejected(auth.ErrUnauthenticated)
	}

	digest := sha256.Sum256([]byte(token))
	match := -1
	for i := range a.entries {
		if subtle.ConstantTimeCompare(digest[:], a.entries[i].digest[:]) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return auth.Rejected(auth.ErrUnauthenticated)
	}

	id := a.entries[match].identity
	id.Courses = slices.Clone(id.Courses)
	return auth.Accepted(&id)
}
