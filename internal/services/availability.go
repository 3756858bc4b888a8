// Package services – availability filter.
//
// The filter is a pure function over an already-fetched item set: no
// network, no mutation, and the insertion order of the input is preserved.
// An empty result is a valid state ("everything is claimed") and is distinct
// from a resolution failure, which never reaches this code.
package services

import "github.com/hintlabs/hint-server/internal/domain"

// Available returns the subset of items that nobody has claimed: neither a
// registered claimant nor a non-empty guest-claimer email is set. An empty
// or all-whitespace guest email counts as unclaimed.
func Available(items []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(items))
	for i := range items {
		if !items[i].Claimed() {
			out = append(out, items[i])
		}
	}
	return out
}
