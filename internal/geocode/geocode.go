// Package geocode resolves free-text locations to coordinates using public
// OpenStreetMap services: Photon first, Nominatim as fallback. Lookups are
// best-effort; a failed lookup leaves the report without coordinates and is
// never surfaced to the citizen.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/apex/log"
	"golang.org/x/time/rate"

	"github.com/nagrik-gov/portal/internal/localcache"
	"github.com/nagrik-gov/portal/internal/shared/config"
	"github.com/nagrik-gov/portal/internal/shared/types"
)

const (
	photonURL    = "https://photon.komoot.io/api/"
	nominatimURL = "https://nominatim.openstreetmap.org/search"
)

// Cacher stores resolved coordinates between runs.
type Cacher interface {
	Save(ctx context.Context, key string, v interface{}) error
	Load(ctx context.Context, key string, v interface{}) (bool, error)
}

// Client is a rate-limited forward geocoder.
type Client struct {
	cfg     config.GeocodeConfig
	http    *http.Client
	limiter *rate.Limiter
	cache   Cacher
	logger  *log.Entry

	photonBase    string
	nominatimBase string
}

// New creates a geocoding client. cache may be nil.
func New(cfg config.GeocodeConfig, cache Cacher) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		cfg:           cfg,
		http:          &http.Client{Timeout: 10 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		cache:         cache,
		logger:        log.WithField("component", "geocode"),
		photonBase:    photonURL,
		nominatimBase: nominatimURL,
	}
}

// Lookup resolves a location string to coordinates. It returns nil when
// nothing could be resolved; it never returns an error to the caller.
func (c *Client) Lookup(ctx context.Context, query string) *types.LatLng {
	if query == "" {
		return nil
	}

	cacheKey := localcache.DocGeocodePrefix + query
	if c.cache != nil {
		var cached types.LatLng
		if ok, err := c.cache.Load(ctx, cacheKey, &cached); err == nil && ok {
			return &cached
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}

	point := c.photon(ctx, query)
	if point == nil {
		point = c.nominatim(ctx, query)
	}
	if point == nil {
		c.logger.WithField("query", query).Debug("location not resolved")
		return nil
	}

	if c.cache != nil {
		if err := c.cache.Save(ctx, cacheKey, point); err != nil {
			c.logger.WithError(err).Warn("failed to cache geocode result")
		}
	}
	return point
}

// photon queries Photon with a bias toward the municipality.
func (c *Client) photon(ctx context.Context, query string) *types.LatLng {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")
	params.Set("lat", strconv.FormatFloat(c.cfg.BiasLat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(c.cfg.BiasLng, 'f', -1, 64))

	var resp struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := c.getJSON(ctx, c.photonBase+"?"+params.Encode(), &resp); err != nil {
		c.logger.WithError(err).Debug("photon lookup failed")
		return nil
	}
	if len(resp.Features) == 0 || len(resp.Features[0].Geometry.Coordinates) < 2 {
		return nil
	}
	coords := resp.Features[0].Geometry.Coordinates
	return &types.LatLng{Lat: coords[1], Lng: coords[0]}
}

// nominatim queries Nominatim restricted to the configured country.
func (c *Client) nominatim(ctx context.Context, query string) *types.LatLng {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("countrycodes", c.cfg.CountryCode)
	params.Set("limit", "1")

	var resp []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := c.getJSON(ctx, c.nominatimBase+"?"+params.Encode(), &resp); err != nil {
		c.logger.WithError(err).Debug("nominatim lookup failed")
		return nil
	}
	if len(resp) == 0 {
		return nil
	}

	lat, err := strconv.ParseFloat(resp[0].Lat, 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(resp[0].Lon, 64)
	if err != nil {
		return nil
	}
	return &types.LatLng{Lat: lat, Lng: lng}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "nagrik-portal/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
