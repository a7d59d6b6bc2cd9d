package musicbrainz

// Wire types for the MusicBrainz JSON web service. Only the fields the
// enrichment lookup reads are decoded.

type searchResponse struct {
	Count   int      `json:"count"`
	Artists []Artist `json:"artists"`
}

// Artist is a MusicBrainz artist, with relations when fetched by id.
type Artist struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Disambiguation string     `json:"disambiguation"`
	Score          int        `json:"score"`
	Aliases        []Alias    `json:"aliases"`
	Relations      []Relation `json:"relations"`
}

// Alias is an alternative artist name.
type Alias struct {
	Name string `json:"name"`
}

// Relation links an artist to an external URL.
type Relation struct {
	Type  string       `json:"type"`
	Ended bool         `json:"ended"`
	URL   *RelationURL `json:"url,omitempty"`
}

type RelationURL struct {
	Resource string `json:"resource"`
}

type releaseGroupPage struct {
	Count         int            `json:"release-group-count"`
	ReleaseGroups []ReleaseGroup `json:"release-groups"`
}

// ReleaseGroup is one album, single or EP of an artist.
type ReleaseGroup struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	PrimaryType      string `json:"primary-type"`
	FirstReleaseDate string `json:"first-release-date"`
}
