package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrRateLimited signals the provider rejected the call due to quota.
// Distinct from an empty result - retry policy is the caller's concern.
var ErrRateLimited = errors.New("venue provider rate limited")

// RawVenue is a venue record as returned by the lookup provider, before
// normalization.
type RawVenue struct {
	PlaceID        string
	Name           string
	Lat            float64
	Lng            float64
	Rating         *float64
	ReviewCount    int
	PhotoReference string
	Types          []string
	Address        string
}

// Client is the venue-lookup provider contract.
type Client interface {
	Nearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]RawVenue, error)
}

const nearbyCategoryFilter = "restaurant|bar|night_club|cafe"

// HTTPClient talks to a Google Places style nearby-search endpoint.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type nearbyResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID  string `json:"place_id"`
		Name     string `json:"name"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Rating           *float64 `json:"rating"`
		UserRatingsTotal int      `json:"user_ratings_total"`
		Photos           []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
		Types            []string `json:"types"`
		Vicinity         string   `json:"vicinity"`
		FormattedAddress string   `json:"formatted_address"`
	} `json:"results"`
}

func (c *HTTPClient) Nearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]RawVenue, error) {
	query := url.Values{}
	query.Set("location", fmt.Sprintf("%v,%v", lat, lng))
	query.Set("radius", fmt.Sprintf("%d", radiusMeters))
	query.Set("type", nearbyCategoryFilter)
	query.Set("key", c.apiKey)

	requestURL := fmt.Sprintf("%s/nearbysearch/json?%s", c.baseURL, query.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("venue provider returned status %d", response.StatusCode)
	}

	var body nearbyResponse
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return nil, err
	}

	switch body.Status {
	case "OK", "ZERO_RESULTS":
	case "OVER_QUERY_LIMIT":
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("venue provider error: %s", body.Status)
	}

	venues := make([]RawVenue, 0, len(body.Results))
	for _, result := range body.Results {
		venue := RawVenue{
			PlaceID:     result.PlaceID,
			Name:        result.Name,
			Lat:         result.Geometry.Location.Lat,
			Lng:         result.Geometry.Location.Lng,
			Rating:      result.Rating,
			ReviewCount: result.UserRatingsTotal,
			Types:       result.Types,
			Address:     result.Vicinity,
		}

		if venue.Address == "" {
			venue.Address = result.FormattedAddress
		}

		if len(result.Photos) > 0 {
			venue.PhotoReference = result.Photos[0].PhotoReference
		}

		venues = append(venues, venue)
	}

	return venues, nil
}
