package result

import (
	"sort"

	"github.com/sydlexius/elsewhere/internal/source"
)

// Verify applies the cross-platform rule to e: when two or more platforms
// report a latest release whose titles normalize to the same value, e is
// marked verified. It never downgrades.
func Verify(e *Entity) {
	if e.Confidence == ConfidenceVerified {
		return
	}
	seen := make(map[string]source.ID)
	for _, p := range e.Platforms {
		if p.LatestRelease == nil {
			continue
		}
		title := NormalizeKey(p.LatestRelease.Title)
		if title == "" {
			continue
		}
		if other, ok := seen[title]; ok && other != p.SourceID {
			e.Confidence = ConfidenceVerified
			return
		}
		seen[title] = p.SourceID
	}
}

// absorb folds dup into dst: links for new sources are appended, links for
// sources dst already has are dropped, a missing image is backfilled and a
// verified label is carried over.
func absorb(dst *Entity, dup Entity) {
	for _, p := range dup.Platforms {
		if !dst.HasSource(p.SourceID) {
			dst.Platforms = append(dst.Platforms, p)
		}
	}
	if dst.ImageURL == "" && dup.ImageURL != "" {
		dst.ImageURL = dup.ImageURL
	}
	if dup.Confidence == ConfidenceVerified {
		dst.Confidence = ConfidenceVerified
	}
}

// dedupe groups entities by Key in first-seen order.
func dedupe(entities []Entity) []Entity {
	index := make(map[string]int)
	var out []Entity
	for _, e := range entities {
		key := e.Key()
		if i, ok := index[key]; ok {
			absorb(&out[i], e)
			continue
		}
		index[key] = len(out)
		c := e.Clone()
		// A single candidate may carry duplicate links if an adapter misbehaves.
		c.Platforms = c.Platforms[:0]
		for _, p := range e.Platforms {
			if !c.HasSource(p.SourceID) {
				c.Platforms = append(c.Platforms, p)
			}
		}
		out = append(out, c)
	}
	return out
}

// rank sorts by platform count descending, keeping the existing order
// between entities with equal counts.
func rank(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		return len(entities[i].Platforms) > len(entities[j].Platforms)
	})
}

// Assemble reconciles the candidates every adapter returned for one query.
// Duplicates are merged, search-only links are attached to each artist that
// at least one verifying platform found, entities backed only by search
// links are dropped, and the cross-platform rule is applied.
func Assemble(q string, candidates []Entity) SearchResponse {
	merged := dedupe(candidates)

	var searchLinks []PlatformLink
	var found []Entity
	for _, e := range merged {
		if !e.HasVerifiedLink() {
			searchLinks = append(searchLinks, e.Platforms...)
			continue
		}
		found = append(found, e)
	}

	for i := range found {
		if found[i].Type != TypeArtist {
			continue
		}
		for _, p := range searchLinks {
			if !found[i].HasSource(p.SourceID) {
				found[i].Platforms = append(found[i].Platforms, p)
			}
		}
	}

	for i := range found {
		Verify(&found[i])
	}
	rank(found)

	if found == nil {
		found = []Entity{}
	}
	return SearchResponse{Query: q, Results: found}
}

// Merge combines the responses of every sub-query into one response for the
// original query. Entities sharing a key are unioned; the first link seen
// for a source wins. Verified is sticky. When more than one response is
// merged, entities without a cross-platform match become unverified.
// The result does not depend on the order of responses except for the
// order of links inside an entity and of equally ranked entities.
func Merge(original string, responses []SearchResponse) SearchResponse {
	var all []Entity
	for _, r := range responses {
		all = append(all, r.Results...)
	}
	merged := dedupe(all)

	multi := len(responses) > 1
	for i := range merged {
		Verify(&merged[i])
		if multi && merged[i].Confidence != ConfidenceVerified {
			merged[i].Confidence = ConfidenceUnverified
		}
	}
	rank(merged)

	if merged == nil {
		merged = []Entity{}
	}
	return SearchResponse{Query: original, Results: merged}
}
