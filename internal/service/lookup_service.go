package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"caltrack/internal/cache"
	"caltrack/internal/errors"
)

// Product data changes rarely; a once-per-day refresh is plenty.
const lookupCacheTTL = 24 * time.Hour

const lookupUserAgent = "caltrack/1.0"

// LookupResult is the normalized product record handed to the client,
// shielding it from the upstream schema. Calories is nil when the product
// carries no usable energy figure; zero is a real calorie count and never
// stands in for "unknown".
type LookupResult struct {
	Found         bool    `json:"found"`
	Barcode       string  `json:"barcode"`
	Name          *string `json:"name"`
	Calories      *int    `json:"calories"`
	CaloriesBasis string  `json:"calories_basis"`
	Image         *string `json:"image"`
}

// LookupService resolves a cleaned barcode against Open Food Facts.
type LookupService interface {
	Lookup(ctx context.Context, barcode string) (*LookupResult, error)
}

type lookupService struct {
	baseURL string
	client  *http.Client
	cache   *cache.Client
}

// NewLookupService creates a lookup service against the given Open Food
// Facts base URL.
func NewLookupService(baseURL string, cache *cache.Client) LookupService {
	return &lookupService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

// offProductResponse mirrors the slice of the Open Food Facts v2 product
// payload we care about. Nutriments stay untyped because energy figures are
// sometimes strings upstream and only numeric values count.
type offProductResponse struct {
	Product *struct {
		ProductName            string                 `json:"product_name"`
		GenericName            string                 `json:"generic_name"`
		AbbreviatedProductName string                 `json:"abbreviated_product_name"`
		Nutriments             map[string]interface{} `json:"nutriments"`
		ImageFrontSmallURL     string                 `json:"image_front_small_url"`
	} `json:"product"`
}

// Lookup resolves a cleaned, non-empty barcode. A product that does not
// exist upstream is a valid negative result, not an error.
func (s *lookupService) Lookup(ctx context.Context, barcode string) (*LookupResult, error) {
	if barcode == "" {
		return nil, errors.ErrMissingBarcode
	}

	cacheKey := "lookup:" + barcode
	if data, _ := s.cache.Get(ctx, cacheKey); data != nil {
		var cached LookupResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s/api/v2/product/%s.json", s.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrLookupUpstream, err)
	}
	req.Header.Set("User-Agent", lookupUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrLookupUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errors.ErrLookupUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errors.ErrLookupUpstream, resp.StatusCode)
	}

	var payload offProductResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", errors.ErrLookupUpstream, err)
	}

	if payload.Product == nil {
		result := &LookupResult{Found: false}
		s.store(ctx, cacheKey, result)
		return result, nil
	}

	result := normalize(barcode, payload)
	s.store(ctx, cacheKey, result)
	return result, nil
}

func (s *lookupService) store(ctx context.Context, key string, result *LookupResult) {
	if data, err := json.Marshal(result); err == nil {
		_ = s.cache.Set(ctx, key, data, lookupCacheTTL)
	}
}

// normalize extracts the fields the client needs. Name preference:
// product name, then generic, then abbreviated, first non-empty. Calorie
// preference: per-serving figure when numeric, else per-100g, else nil; the
// basis reports "serving" only when the serving figure was numeric.
func normalize(barcode string, payload offProductResponse) *LookupResult {
	p := payload.Product

	var name *string
	for _, candidate := range []string{p.ProductName, p.GenericName, p.AbbreviatedProductName} {
		if candidate != "" {
			name = &candidate
			break
		}
	}

	serving, servingOK := numericNutriment(p.Nutriments, "energy-kcal_serving", "energy-kcal_value")
	per100g, per100gOK := numericNutriment(p.Nutriments, "energy-kcal_100g")

	var calories *int
	basis := "100g"
	switch {
	case servingOK:
		v := int(math.Round(serving))
		calories = &v
		basis = "serving"
	case per100gOK:
		v := int(math.Round(per100g))
		calories = &v
	}

	var image *string
	if p.ImageFrontSmallURL != "" {
		image = &p.ImageFrontSmallURL
	}

	return &LookupResult{
		Found:         true,
		Barcode:       barcode,
		Name:          name,
		Calories:      calories,
		CaloriesBasis: basis,
		Image:         image,
	}
}

// numericNutriment returns the first present key's value, and whether that
// value is actually numeric. A present-but-string figure wins the key race
// and then fails the numeric check, matching upstream semantics.
func numericNutriment(nutriments map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := nutriments[key]
		if !ok || v == nil {
			continue
		}
		f, isNum := v.(float64)
		return f, isNum
	}
	return 0, false
}
