package places

import (
	"fmt"

	"github.com/nightswipe/api/internal/modules/geo"
)

// PlaceholderPhotoURL is used when a venue has no photo reference.
const PlaceholderPhotoURL = "https://via.placeholder.com/400x300?text=No+Image"

const addressFallback = "Address not available"

// Place is the canonical venue entity served on deck cards.
type Place struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	PhotoURL    string   `json:"photo_url"`
	Category    string   `json:"category"`
	Rating      *float64 `json:"rating"`
	ReviewCount int      `json:"review_count"`
	Address     string   `json:"address"`
	DistanceKm  float64  `json:"distance_km"`
}

// Normalize maps a raw provider record into the canonical Place. Category
// is inferred by priority over the provider type tags, the photo URL is
// synthesized from the first photo reference, and distance is computed
// from the host location.
func Normalize(venue RawVenue, hostLat, hostLng float64, apiKey string) Place {
	address := venue.Address
	if address == "" {
		address = addressFallback
	}

	return Place{
		PlaceID:     venue.PlaceID,
		Name:        venue.Name,
		PhotoURL:    photoURL(venue.PhotoReference, apiKey),
		Category:    categoryOf(venue.Types),
		Rating:      venue.Rating,
		ReviewCount: venue.ReviewCount,
		Address:     address,
		DistanceKm:  geo.RoundTenth(geo.HaversineKm(hostLat, hostLng, venue.Lat, venue.Lng)),
	}
}

func categoryOf(types []string) string {
	tags := make(map[string]bool, len(types))
	for _, t := range types {
		tags[t] = true
	}

	switch {
	case tags["restaurant"]:
		return "Restaurant"
	case tags["bar"], tags["night_club"]:
		return "Bar"
	case tags["cafe"]:
		return "Cafe"
	default:
		return "Activity"
	}
}

func photoURL(photoReference, apiKey string) string {
	if photoReference == "" {
		return PlaceholderPhotoURL
	}

	return fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/place/photo?maxwidth=400&photoreference=%s&key=%s",
		photoReference,
		apiKey,
	)
}
