package postiz

// YouTubeSettings mirrors the shorts posting options. The __type marker
// routes server-side settings validation.
type YouTubeSettings struct {
	Type        string   `json:"__type"`
	Title       string   `json:"title"`
	Visibility  string   `json:"type"`
	MadeForKids string   `json:"selfDeclaredMadeForKids"`
	Tags        []string `json:"tags"`
}

// NewYouTubeSettings returns public, not-for-kids defaults.
func NewYouTubeSettings(title string) YouTubeSettings {
	return YouTubeSettings{
		Type:        "youtube",
		Title:       title,
		Visibility:  "public",
		MadeForKids: "no",
		Tags:        []string{},
	}
}

// TikTokSettings mirrors the direct-post options.
type TikTokSettings struct {
	Type                 string `json:"__type"`
	Title                string `json:"title"`
	PrivacyLevel         string `json:"privacy_level"`
	Duet                 bool   `json:"duet"`
	Stitch               bool   `json:"stitch"`
	Comment              bool   `json:"comment"`
	AutoAddMusic         string `json:"autoAddMusic"`
	BrandContentToggle   bool   `json:"brand_content_toggle"`
	BrandOrganicToggle   bool   `json:"brand_organic_toggle"`
	VideoMadeWithAI      bool   `json:"video_made_with_ai"`
	ContentPostingMethod string `json:"content_posting_method"`
}

// NewTikTokSettings returns public direct-post defaults with interactions
// enabled.
func NewTikTokSettings(title string) TikTokSettings {
	return TikTokSettings{
		Type:                 "tiktok",
		Title:                title,
		PrivacyLevel:         "PUBLIC_TO_EVERYONE",
		Duet:                 true,
		Stitch:               true,
		Comment:              true,
		AutoAddMusic:         "no",
		ContentPostingMethod: "DIRECT_POST",
	}
}

// InstagramSettings mirrors the feed post options.
type InstagramSettings struct {
	Type          string   `json:"__type"`
	PostType      string   `json:"post_type"`
	Collaborators []string `json:"collaborators"`
}

// NewInstagramSettings returns standard feed post defaults.
func NewInstagramSettings() InstagramSettings {
	return InstagramSettings{
		Type:          "instagram",
		PostType:      "post",
		Collaborators: []string{},
	}
}

// SettingsForPlatform builds the platform settings payload for the given
// integration identifier. Unknown platforms get an empty settings object.
func SettingsForPlatform(identifier, title string) any {
	switch identifier {
	case "youtube":
		return NewYouTubeSettings(title)
	case "tiktok":
		return NewTikTokSettings(title)
	case "instagram":
		return NewInstagramSettings()
	default:
		return struct{}{}
	}
}
