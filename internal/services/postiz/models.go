package postiz

// Customer identifies the workspace customer an integration belongs to.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Integration is one connected social channel.
type Integration struct {
	ID         string   `json:"id"`
	Identifier string   `json:"identifier"`
	Profile    string   `json:"profile"`
	Name       string   `json:"name"`
	Disabled   bool     `json:"disabled"`
	Picture    string   `json:"picture"`
	Customer   Customer `json:"customer"`
}

// UploadedAsset is the server-side record for an uploaded media file.
type UploadedAsset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Thumbnail string `json:"thumbnail"`
	Alt       string `json:"alt"`
}

// MediaRef points a post at an uploaded asset.
type MediaRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// PostContent is the caption plus attached media for one platform post.
type PostContent struct {
	Content string     `json:"content"`
	Image   []MediaRef `json:"image"`
}

// IntegrationRef selects the channel a post publishes to.
type IntegrationRef struct {
	ID string `json:"id"`
}

// PostEntry is one platform post inside a schedule bundle.
type PostEntry struct {
	Integration IntegrationRef `json:"integration"`
	Value       []PostContent  `json:"value"`
	Settings    any            `json:"settings"`
}

// ScheduleBundle is the posts endpoint payload.
type ScheduleBundle struct {
	Type      string      `json:"type"`
	Date      string      `json:"date"`
	ShortLink bool        `json:"shortLink"`
	Tags      []string    `json:"tags"`
	Posts     []PostEntry `json:"posts"`
}

// ScheduledPost is one created post returned by the posts endpoint.
type ScheduledPost struct {
	PostID      string `json:"postId"`
	Integration string `json:"integration"`
}
