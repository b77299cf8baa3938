package connect

import (
	"fmt"
	"strings"
)

// Platform identifies a supported third-party provider. It doubles as the
// partitioning key for stored grants and client configurations.
type Platform string

const (
	PlatformSpotify         Platform = "spotify"
	PlatformYouTube         Platform = "youtube"
	PlatformFacebook        Platform = "facebook"
	PlatformInstagram       Platform = "instagram"
	PlatformTwitter         Platform = "twitter"
	PlatformTikTok          Platform = "tiktok"
	PlatformGoogleAnalytics Platform = "google_analytics"
)

// Platforms returns every supported platform. Registry construction iterates
// this list so a platform without an exchange strategy fails at startup
// instead of at callback time.
func Platforms() []Platform {
	return []Platform{
		PlatformSpotify,
		PlatformYouTube,
		PlatformFacebook,
		PlatformInstagram,
		PlatformTwitter,
		PlatformTikTok,
		PlatformGoogleAnalytics,
	}
}

// ParsePlatform maps a path or query segment to a Platform.
func ParsePlatform(value string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(value)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, value)
	}
	return p, nil
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformSpotify,
		PlatformYouTube,
		PlatformFacebook,
		PlatformInstagram,
		PlatformTwitter,
		PlatformTikTok,
		PlatformGoogleAnalytics:
		return true
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}
