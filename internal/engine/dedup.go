// Copyright (c) 2015-2021 MinIO, Inc.
//
// This file is part of MinIO Object Storage stack
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package engine

// dedupCoordinator holds the decision rules of the reference-count
// state machine: holder election and delete legality. Reference
// creation and refcount updates are performed by Engine.Put and
// Engine.Delete.
//
// The current implementation refuses to delete a pinned holder rather
// than performing holder transfer. Refusal keeps the delete path a
// pure function of the target object's own state, with no cascading
// rewrite of sibling references; the HolderHasReferences scenario
// (Scenario 3) is tested against this policy.
type dedupCoordinator struct{}

func newDedupCoordinator() *dedupCoordinator { return &dedupCoordinator{} }

// chooseHolder implements the best-holder election rule among the
// given candidate records (all sharing a content etag). It returns
// nil if candidates is empty.
func (d *dedupCoordinator) chooseHolder(candidates []*ObjectMetadata) *ObjectMetadata {
	if len(candidates) == 0 {
		return nil
	}
	var best *ObjectMetadata
	for _, c := range candidates {
		if c.Role() != RoleHolder {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		switch {
		case c.ReferenceCount != best.ReferenceCount:
			if c.ReferenceCount > best.ReferenceCount {
				best = c
			}
		case !c.CreatedAt.Equal(best.CreatedAt):
			if c.CreatedAt.Before(best.CreatedAt) {
				best = c
			}
		case c.ID < best.ID:
			best = c
		}
	}
	if best != nil {
		return best
	}
	// This should never happen (a reference's holder always exists and
	// is itself a holder), but if every candidate is
	// somehow a reference, promote the earliest-created one so the
	// caller always has a usable holder to route to.
	best = candidates[0]
	for _, c := range candidates[1:] {
		if c.CreatedAt.Before(best.CreatedAt) {
			best = c
		}
	}
	return best
}

// canDeleteHolder reports whether a HOLDER_PINNED object may be deleted
// under the current (refuse) policy.
func (d *dedupCoordinator) canDeleteHolder(m *ObjectMetadata) bool {
	return m.Role() != RoleHolder || m.ReferenceCount == 0
}
