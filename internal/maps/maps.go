// Package maps wraps the Google Maps Places API for location replies.
// The client is optional: without an API key, lookups report unavailable.
package maps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gmaps "googlemaps.github.io/maps"
)

// ErrUpstream wraps all Places API failures.
var ErrUpstream = errors.New("maps upstream error")

const (
	defaultRadiusMeters = 1000
	defaultLanguage     = "zh-TW"
)

// Place is one nearby search result.
type Place struct {
	Name    string
	Address string
	Rating  float32
}

// Finder looks up nearby places around a coordinate.
type Finder interface {
	// Available reports whether lookups can be served at all.
	Available() bool

	// FindNearby returns up to maxResults places matching keyword around
	// the given coordinate.
	FindNearby(ctx context.Context, lat, lng float64, keyword string, maxResults int) ([]Place, error)
}

type client struct {
	api *gmaps.Client
	log *slog.Logger
}

// NewFinder creates a places client. An empty API key yields a disabled
// finder rather than an error, matching the optional nature of the
// feature.
func NewFinder(apiKey string, log *slog.Logger) (Finder, error) {
	logger := log.With("component", "maps_client")

	if apiKey == "" {
		logger.Warn("Google Maps API key not configured, location lookups disabled")
		return &client{log: logger}, nil
	}

	api, err := gmaps.NewClient(gmaps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	logger.Info("Google Maps client initialized")
	return &client{api: api, log: logger}, nil
}

func (c *client) Available() bool {
	return c.api != nil
}

// FindNearby returns up to maxResults places matching keyword around the
// given coordinate.
func (c *client) FindNearby(ctx context.Context, lat, lng float64, keyword string, maxResults int) ([]Place, error) {
	if !c.Available() {
		return nil, fmt.Errorf("%w: maps client not configured", ErrUpstream)
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	resp, err := c.api.NearbySearch(ctx, &gmaps.NearbySearchRequest{
		Location: &gmaps.LatLng{Lat: lat, Lng: lng},
		Radius:   defaultRadiusMeters,
		Keyword:  keyword,
		Language: defaultLanguage,
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Nearby search failed", "keyword", keyword, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	places := make([]Place, 0, maxResults)
	for _, result := range resp.Results {
		if len(places) == maxResults {
			break
		}
		places = append(places, Place{
			Name:    result.Name,
			Address: result.Vicinity,
			Rating:  result.Rating,
		})
	}

	c.log.InfoContext(ctx, "Found nearby places", "keyword", keyword, "count", len(places))
	return places, nil
}

// FormatPlaces renders a nearby search result list as a plain text reply.
func FormatPlaces(header string, places []Place) string {
	var b strings.Builder
	b.WriteString(header)
	for i, place := range places {
		b.WriteString(fmt.Sprintf("\n\n%d. %s", i+1, place.Name))
		if place.Address != "" {
			b.WriteString("\n" + place.Address)
		}
		if place.Rating > 0 {
			b.WriteString(fmt.Sprintf("\n⭐ %.1f", place.Rating))
		}
	}
	return b.String()
}
