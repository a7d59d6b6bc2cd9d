package source

// Known source ids referenced outside the catalog.
const (
	Bandcamp     ID = "bandcamp"
	Mirlo        ID = "mirlo"
	Qobuz        ID = "qobuz"
	SevenDigital ID = "7digital"
	Patreon      ID = "patreon"
	KoFi         ID = "kofi"
	BuyMeACoffee ID = "buymeacoffee"
	Audius       ID = "audius"
	Nina         ID = "nina"
	Official     ID = "official"
	MusicBrainz  ID = "musicbrainz"
	Hoopla       ID = "hoopla"
	Freegal      ID = "freegal"
	Instagram    ID = "instagram"
	Twitter      ID = "twitter"
	Bluesky      ID = "bluesky"
	Mastodon     ID = "mastodon"
	Facebook     ID = "facebook"
	TikTok       ID = "tiktok"
	YouTube      ID = "youtube"
	SoundCloud   ID = "soundcloud"
)

// ddg builds a DuckDuckGo site-restricted search template. Used for
// platforms with no search page of their own.
func ddg(site string) string {
	return "https://duckduckgo.com/?q=site%3A" + site + "+{query}"
}

// Catalog returns the built-in platform list in display order.
func Catalog() []Source {
	return []Source{
		{
			ID: Bandcamp, Name: "Bandcamp", Category: CategoryMarketplace,
			Embeddable: true, Scrape: true,
			SearchURLTemplate: "https://bandcamp.com/search?q={query}&item_type=b",
			ArtistURLTemplate: "https://{slug}.bandcamp.com",
			ListingPath:       "/music",
		},
		{
			ID: Mirlo, Name: "Mirlo", Category: CategoryMarketplace,
			Feed:              true,
			SearchURLTemplate: "https://mirlo.space/search?q={query}",
			ArtistURLTemplate: "https://mirlo.space/{slug}",
			FeedURLTemplate:   "https://api.mirlo.space/v1/artists/{slug}/feed?format=rss",
		},
		{
			ID: Qobuz, Name: "Qobuz", Category: CategoryMarketplace,
			SearchOnly:        true,
			SearchURLTemplate: "https://www.qobuz.com/us-en/search?q={query}",
		},
		{
			ID: SevenDigital, Name: "7digital", Category: CategoryMarketplace,
			SearchOnly:        true,
			SearchURLTemplate: "https://us.7digital.com/search?q={query}",
		},
		{
			ID: Patreon, Name: "Patreon", Category: CategoryPatronage,
			SearchURLTemplate: "https://www.patreon.com/search?q={query}",
			ArtistURLTemplate: "https://www.patreon.com/{slug}",
		},
		{
			ID: KoFi, Name: "Ko-fi", Category: CategoryPatronage,
			SearchURLTemplate: ddg("ko-fi.com"),
			ArtistURLTemplate: "https://ko-fi.com/{slug}",
		},
		{
			ID: BuyMeACoffee, Name: "Buy Me a Coffee", Category: CategoryPatronage,
			SearchOnly:        true,
			SearchURLTemplate: ddg("buymeacoffee.com"),
		},
		{
			ID: Audius, Name: "Audius", Category: CategoryDecentralized,
			SearchURLTemplate: "https://audius.co/search/{query_path}",
			ArtistURLTemplate: "https://audius.co/{slug}",
		},
		{
			ID: Nina, Name: "Nina Protocol", Category: CategoryDecentralized,
			SearchOnly:        true,
			SearchURLTemplate: "https://www.ninaprotocol.com/search?q={query}",
		},
		{
			ID: Official, Name: "Official Site", Category: CategoryOfficial,
			EnrichmentOnly: true,
		},
		{
			ID: MusicBrainz, Name: "MusicBrainz", Category: CategoryOfficial,
			EnrichmentOnly:    true,
			SearchURLTemplate: "https://musicbrainz.org/search?query={query}&type=artist",
		},
		{
			ID: Hoopla, Name: "hoopla", Category: CategoryLibrary,
			EnrichmentOnly: true, SearchOnly: true,
			SearchURLTemplate: "https://www.hoopladigital.com/search?q={query}&scope=music",
		},
		{
			ID: Freegal, Name: "Freegal Music", Category: CategoryLibrary,
			EnrichmentOnly: true, SearchOnly: true,
			SearchURLTemplate: "https://www.freegalmusic.com/search-page/{query_path}/artists",
		},
		{
			ID: Instagram, Name: "Instagram", Category: CategorySocial,
			SearchOnly: true, SearchURLTemplate: ddg("instagram.com"),
		},
		{
			ID: Twitter, Name: "X / Twitter", Category: CategorySocial,
			SearchOnly: true, SearchURLTemplate: ddg("x.com"),
		},
		{
			ID: Bluesky, Name: "Bluesky", Category: CategorySocial,
			SearchOnly: true, SearchURLTemplate: "https://bsky.app/search?q={query}",
		},
		{
			ID: Mastodon, Name: "Mastodon", Category: CategorySocial,
			EnrichmentOnly: true,
		},
		{
			ID: Facebook, Name: "Facebook", Category: CategorySocial,
			EnrichmentOnly: true,
		},
		{
			ID: TikTok, Name: "TikTok", Category: CategorySocial,
			EnrichmentOnly: true,
		},
		{
			ID: YouTube, Name: "YouTube", Category: CategorySocial,
			SearchOnly: true, SearchURLTemplate: "https://www.youtube.com/results?search_query={query}",
		},
		{
			ID: SoundCloud, Name: "SoundCloud", Category: CategorySocial,
			SearchOnly: true, SearchURLTemplate: "https://soundcloud.com/search/people?q={query}",
		},
	}
}

// Default returns a registry over Catalog.
func Default() *Registry {
	r, err := NewRegistry(Catalog()...)
	if err != nil {
		// The built-in catalog is static; a failure here is a programming error.
		panic(err)
	}
	return r
}
