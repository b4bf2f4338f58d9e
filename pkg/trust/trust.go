// Package trust implements the Trust Record (§3): the set of repository
// identities the user has approved to run the `custom` up operation on.
// Omni deliberately does not sandbox `custom`; trust is the only gate.
package trust

import (
	"encoding/json"
	"fmt"

	"github.com/omnicli/omni/pkg/cache"
	"github.com/omnicli/omni/pkg/omnierr"
	"github.com/omnicli/omni/pkg/repoutil"
)

const cacheKey = "trusted_repositories"

// Store arbitrates trust decisions through the shared cache file.
type Store struct {
	cache *cache.Store
	orgs  []string
}

// NewStore returns a trust Store backed by c, treating any repository whose
// org is in trustedOrgs as implicitly trusted without a cache entry.
func NewStore(c *cache.Store, trustedOrgs []string) *Store {
	return &Store{cache: c, orgs: trustedOrgs}
}

// IsTrusted reports whether id is trusted, either because its org is
// configured as trusted or because it was previously added via Trust.
func (s *Store) IsTrusted(id repoutil.Identity) (bool, error) {
	for _, org := range s.orgs {
		if org == id.Org {
			return true, nil
		}
	}

	rec, ok, err := s.cache.Get(cacheKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	var ids []string
	if err := json.Unmarshal(rec.Value, &ids); err != nil {
		return false, fmt.Errorf("decoding trust cache: %w", err)
	}
	for _, stored := range ids {
		if stored == id.String() {
			return true, nil
		}
	}
	return false, nil
}

// Trust adds id to the trust cache. Trusting an already-trusted (or
// implicitly trusted) identity is a no-op.
func (s *Store) Trust(id repoutil.Identity) error {
	rec, ok, err := s.cache.Get(cacheKey)
	if err != nil {
		return err
	}
	var ids []string
	if ok {
		if err := json.Unmarshal(rec.Value, &ids); err != nil {
			return fmt.Errorf("decoding trust cache: %w", err)
		}
	}
	for _, stored := range ids {
		if stored == id.String() {
			return nil
		}
	}
	ids = append(ids, id.String())
	return s.cache.Set(cacheKey, ids, 0)
}

// Untrust removes id from the trust cache. It does not affect implicit
// trust via a trusted org.
func (s *Store) Untrust(id repoutil.Identity) error {
	rec, ok, err := s.cache.Get(cacheKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(rec.Value, &ids); err != nil {
		return fmt.Errorf("decoding trust cache: %w", err)
	}
	filtered := ids[:0]
	for _, stored := range ids {
		if stored != id.String() {
			filtered = append(filtered, stored)
		}
	}
	return s.cache.Set(cacheKey, filtered, 0)
}

// Decision is the user's answer to a trust prompt.
type Decision int

const (
	DecisionNo Decision = iota
	DecisionYes
	DecisionAlways
)

// Resolve applies a trust Decision for id: DecisionAlways persists the
// trust via Trust; DecisionYes and DecisionNo do not persist anything.
// Returns whether the operation should proceed.
func (s *Store) Resolve(id repoutil.Identity, decision Decision) (bool, error) {
	switch decision {
	case DecisionAlways:
		if err := s.Trust(id); err != nil {
			return false, err
		}
		return true, nil
	case DecisionYes:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s", omnierr.ErrNotTrusted, id)
	}
}
