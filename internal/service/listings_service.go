package service

import (
	"context"
	"io"

	"github.com/mbathio/find-and-returned/internal/api"
	"github.com/mbathio/find-and-returned/internal/cache"
	"github.com/mbathio/find-and-returned/internal/domain"
)

// UploadResult is returned by the image upload endpoint.
type UploadResult struct {
	URL string `json:"url"`
}

// ListingsService wraps the listings endpoints with read-through
// caching and the invalidation rules the UI depends on.
type ListingsService struct {
	client *api.Client
	cache  *cache.Cache
}

func NewListingsService(client *api.Client, c *cache.Cache) *ListingsService {
	return &ListingsService{
		client: client,
		cache:  c,
	}
}

// Search returns a page of listings matching the params.
func (s *ListingsService) Search(ctx context.Context, params domain.ListingSearchParams) (*domain.PagedResponse[domain.Listing], error) {
	path := "listings"
	if q := params.Encode(); q != "" {
		path += "?" + q
	}

	return fetchCached(ctx, s.cache, cache.Key(cache.KeyListings, params.Encode()), func(ctx context.Context) (*domain.PagedResponse[domain.Listing], error) {
		var page domain.PagedResponse[domain.Listing]
		if err := s.client.Get(ctx, path, &page); err != nil {
			return nil, err
		}
		return &page, nil
	})
}

// Get returns one listing by id.
func (s *ListingsService) Get(ctx context.Context, id string) (*domain.Listing, error) {
	return fetchCached(ctx, s.cache, cache.Key("listing", id), func(ctx context.Context) (*domain.Listing, error) {
		var listing domain.Listing
		if err := s.client.Get(ctx, "listings/"+id, &listing); err != nil {
			return nil, err
		}
		return &listing, nil
	})
}

// Create posts a new listing and invalidates the cached search pages.
func (s *ListingsService) Create(ctx context.Context, req domain.CreateListingRequest) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.client.Post(ctx, "listings", req, &listing); err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.KeyListings)
	return &listing, nil
}

// Update modifies a listing, refreshes its cache entry and invalidates
// the search pages.
func (s *ListingsService) Update(ctx context.Context, id string, req domain.CreateListingRequest) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.client.Put(ctx, "listings/"+id, req, &listing); err != nil {
		return nil, err
	}
	s.cache.Set(cache.Key("listing", listing.ID), &listing)
	s.cache.Invalidate(cache.KeyListings)
	return &listing, nil
}

// Delete removes a listing and all cached traces of it.
func (s *ListingsService) Delete(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, "listings/"+id, nil); err != nil {
		return err
	}
	s.cache.Remove(cache.Key("listing", id))
	s.cache.Invalidate(cache.KeyListings)
	return nil
}

// UploadImage sends an image as multipart form data, reporting upload
// progress as a 0-100 percentage.
func (s *ListingsService) UploadImage(ctx context.Context, filename string, r io.Reader, onProgress func(float64)) (*UploadResult, error) {
	var result UploadResult
	if err := s.client.UploadFile(ctx, "upload/image", filename, r, onProgress, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// fetchCached runs fetch through the query cache with the read-query
// retry policy (one retry, never on 4xx).
func fetchCached[T any](ctx context.Context, c *cache.Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
