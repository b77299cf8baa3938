// Package platforms wires every supported platform to its exchange strategy.
package platforms

import (
	"github.com/creatorpulse/connect"
	"github.com/creatorpulse/connect/platforms/google"
	"github.com/creatorpulse/connect/platforms/meta"
	"github.com/creatorpulse/connect/platforms/spotify"
	"github.com/creatorpulse/connect/platforms/tiktok"
	"github.com/creatorpulse/connect/platforms/twitter"
)

// DefaultRegistry builds the dispatch table for all supported platforms.
// Adding a value to connect.Platforms without registering a strategy here
// makes the Complete check fail at startup.
func DefaultRegistry() (*connect.ExchangeRegistry, error) {
	registry, err := connect.NewExchangeRegistry(
		spotify.New(spotify.Options{}),
		google.New(connect.PlatformYouTube, google.Options{}),
		google.New(connect.PlatformGoogleAnalytics, google.Options{}),
		meta.New(connect.PlatformFacebook, meta.Options{}),
		meta.New(connect.PlatformInstagram, meta.Options{}),
		twitter.New(twitter.Options{}),
		tiktok.New(tiktok.Options{}),
	)
	if err != nil {
		return nil, err
	}

	if err := registry.Complete(); err != nil {
		return nil, err
	}

	return registry, nil
}
