package finder

// General search pool: incumbent users, complainers, and creators who
// obviously need a link tool.
var generalQueries = []string{
	`linktree filter:links`,
	`"linktr.ee" -is:retweet`,
	`"linktree" expensive`,
	`"linktree" "too much"`,
	`"link in bio" frustrated`,
	`"need a better" "link in bio"`,
	`"check my bio" -is:retweet`,
	`"link in bio" creator`,
	`"links in bio"`,
	`"small business" "link in bio"`,
	`artist "link in bio"`,
	`musician "link in bio"`,
	`"content creator" linktree`,
	`coach "link in bio"`,
	`"etsy shop" "link in bio"`,
	`photographer portfolio link`,
}

// Niche-specific pools convert better than the general sweep.
var nicheQueries = map[string][]string{
	"fitness": {
		`fitness coach "link in bio"`,
		`personal trainer linktree`,
		`"fitness journey" "check bio"`,
		`gym "link in bio"`,
	},
	"art": {
		`artist commissions "link in bio"`,
		`illustrator linktree`,
		`"art prints" "link in bio"`,
		`digital artist portfolio`,
	},
	"music": {
		`musician "link in bio"`,
		`producer linktree`,
		`"new song" "link in bio"`,
		`singer spotify "bio"`,
	},
	"business": {
		`entrepreneur "link in bio"`,
		`"small business" linktree`,
		`founder "check bio"`,
		`startup "link in bio"`,
	},
	"coaching": {
		`life coach "link in bio"`,
		`business coach linktree`,
		`mentor "book a call" bio`,
		`consultant "link in bio"`,
	},
	"ecommerce": {
		`"etsy shop" "link in bio"`,
		`shopify "link in bio"`,
		`"shop now" "link in bio"`,
		`handmade "check bio"`,
	},
}

// Niches lists the known niche pool names.
func Niches() []string {
	out := make([]string, 0, len(nicheQueries))
	for name := range nicheQueries {
		out = append(out, name)
	}
	return out
}

// queryPool returns the pool for a niche, or the general pool when the
// niche is empty or unknown.
func queryPool(niche string) []string {
	if pool, ok := nicheQueries[niche]; ok {
		return pool
	}
	return generalQueries
}
