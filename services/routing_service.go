package services

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	appConfig "github.com/onestep-solution/field-service-api/config"
)

// ETANotAvailable is the sentinel shown to users whenever a route estimate
// cannot be produced. Routing is best-effort and must never fail a request.
const ETANotAvailable = "ETA not available"

// Coordinates is a lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ETA is a route estimate between two points.
type ETA struct {
	Duration time.Duration `json:"-"`
	Minutes  int           `json:"minutes"`
	Distance string        `json:"distance"`
}

// RoutingProvider defines the interface for external route/ETA queries
type RoutingProvider interface {
	ETA(origin, dest Coordinates) (*ETA, error)
}

var routingProviderInstance RoutingProvider

// InitRoutingService initializes the OpenRouteService-backed routing provider
func InitRoutingService() RoutingProvider {
	cfg := appConfig.GetConfig()
	routingProviderInstance = &ORSRoutingService{
		apiKey:  cfg.ORSAPIKey,
		baseURL: "https://api.openrouteservice.org",
		client:  &http.Client{Timeout: 5 * time.Second},
	}
	return routingProviderInstance
}

// GetRoutingService returns the routing provider instance
func GetRoutingService() RoutingProvider {
	return routingProviderInstance
}

// SetRoutingService sets the routing provider instance (primarily for testing)
func SetRoutingService(p RoutingProvider) {
	routingProviderInstance = p
}

// ORSRoutingService queries the OpenRouteService directions API.
type ORSRoutingService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type orsDirectionsResponse struct {
	Features []struct {
		Properties struct {
			Summary struct {
				Duration float64 `json:"duration"` // seconds
				Distance float64 `json:"distance"` // meters
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// ETA requests a driving route estimate. The HTTP client carries a bounded
// timeout; callers convert any error into the ETANotAvailable sentinel.
func (s *ORSRoutingService) ETA(origin, dest Coordinates) (*ETA, error) {
	// ORS takes lng,lat ordering
	url := fmt.Sprintf("%s/v2/directions/driving-car?api_key=%s&start=%f,%f&end=%f,%f",
		s.baseURL, s.apiKey, origin.Lng, origin.Lat, dest.Lng, dest.Lat)

	resp, err := s.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("routing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing API returned status %d", resp.StatusCode)
	}

	var body orsDirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode routing response: %w", err)
	}
	if len(body.Features) == 0 {
		return nil, fmt.Errorf("routing API returned no routes")
	}

	summary := body.Features[0].Properties.Summary
	duration := time.Duration(summary.Duration) * time.Second
	return &ETA{
		Duration: duration,
		Minutes:  int(math.Round(duration.Minutes())),
		Distance: fmt.Sprintf("%.1f km", summary.Distance/1000),
	}, nil
}

// ETAMessage formats an ETA for user-facing responses, falling back to the
// sentinel when the estimate is missing.
func ETAMessage(eta *ETA, err error) string {
	if err != nil || eta == nil {
		return ETANotAvailable
	}
	return fmt.Sprintf("%d minutes", eta.Minutes)
}
