package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const opencageBaseURL = "https://api.opencagedata.com/geocode/v1/json"

// ErrGeocodingNotConfigured is returned by Geocode when no API key was set.
// ReverseGeocode falls back to mock data instead, so signup keeps working
// in development.
var ErrGeocodingNotConfigured = errors.New("opencage api key is not configured")

// Location is a normalized geocoding result.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	PostalCode  string  `json:"postal_code"`
	Confidence  int     `json:"confidence"`
}

// LocationService resolves coordinates and addresses through the OpenCage
// geocoding API.
type LocationService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewLocationService constructs a LocationService.
func NewLocationService(apiKey string) *LocationService {
	return &LocationService{
		apiKey:     apiKey,
		baseURL:    opencageBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type opencageResponse struct {
	Results []struct {
		Formatted  string `json:"formatted"`
		Confidence int    `json:"confidence"`
		Geometry   struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Components struct {
			City        string `json:"city"`
			Town        string `json:"town"`
			Village     string `json:"village"`
			State       string `json:"state"`
			Province    string `json:"province"`
			Country     string `json:"country"`
			CountryCode string `json:"country_code"`
			Postcode    string `json:"postcode"`
		} `json:"components"`
	} `json:"results"`
}

// ReverseGeocode resolves coordinates to an address. Without an API key or
// on upstream failure it returns basic fallback data rather than an error,
// since location enrichment is never a primary operation.
func (s *LocationService) ReverseGeocode(latitude, longitude float64) *Location {
	if s.apiKey == "" {
		log.Println("[Location] OPENCAGE_API_KEY not set, using mock location data")
		return mockLocation(latitude, longitude)
	}

	loc, err := s.query(fmt.Sprintf("%f+%f", latitude, longitude))
	if err != nil {
		log.Printf("[Location] reverse geocoding failed: %v", err)
		return &Location{
			Latitude:  latitude,
			Longitude: longitude,
			Address:   fmt.Sprintf("%f, %f", latitude, longitude),
			City:      "Unknown",
			State:     "Unknown",
			Country:   "Unknown",
		}
	}
	loc.Latitude = latitude
	loc.Longitude = longitude
	return loc
}

// Geocode resolves an address to coordinates.
func (s *LocationService) Geocode(address string) (*Location, error) {
	if s.apiKey == "" {
		return nil, ErrGeocodingNotConfigured
	}
	return s.query(address)
}

func (s *LocationService) query(q string) (*Location, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("key", s.apiKey)
	params.Set("limit", "1")
	params.Set("no_annotations", "1")

	resp, err := s.httpClient.Get(s.baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read geocoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var parsed opencageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, errors.New("no location data found")
	}

	result := parsed.Results[0]
	city := firstNonEmpty(result.Components.City, result.Components.Town, result.Components.Village, "Unknown")
	state := firstNonEmpty(result.Components.State, result.Components.Province, "Unknown")

	return &Location{
		Latitude:    result.Geometry.Lat,
		Longitude:   result.Geometry.Lng,
		Address:     result.Formatted,
		City:        city,
		State:       state,
		Country:     firstNonEmpty(result.Components.Country, "Unknown"),
		CountryCode: firstNonEmpty(result.Components.CountryCode, "unknown"),
		PostalCode:  result.Components.Postcode,
		Confidence:  result.Confidence,
	}, nil
}

func mockLocation(latitude, longitude float64) *Location {
	return &Location{
		Latitude:    latitude,
		Longitude:   longitude,
		Address:     "123 Development St, Test City",
		City:        "Test City",
		State:       "California",
		Country:     "United States",
		CountryCode: "us",
		PostalCode:  "94000",
		Confidence:  1,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
