package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const bandController = "/api/Band"

// Band is a salary band maintained on the admin screens.
type Band struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BandList is the band list endpoint's response envelope.
type BandList struct {
	Bands      []Band `json:"bandModel"`
	TotalCount int    `json:"totalCount"`
}

// BandsService calls the band maintenance endpoints.
type BandsService struct {
	client *Client
}

// List fetches one page of bands, optionally filtered by name.
func (s *BandsService) List(ctx context.Context, page, pageSize int, name string) (*BandList, error) {
	path := fmt.Sprintf("%s/bandList/%d/%d", bandController, page, pageSize)
	if search := strings.TrimSpace(name); search != "" {
		path += "/" + url.PathEscape(search)
	}

	var list BandList
	if err := s.client.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Get fetches a single band by ID.
func (s *BandsService) Get(ctx context.Context, id string) (*Band, error) {
	var band Band
	if err := s.client.get(ctx, fmt.Sprintf("%s/band/%s", bandController, url.PathEscape(id)), &band); err != nil {
		return nil, err
	}
	return &band, nil
}

// Create adds a new band.
func (s *BandsService) Create(ctx context.Context, name string) error {
	body := map[string]string{"name": name}
	return s.client.post(ctx, bandController+"/create", body, nil)
}

// Update renames an existing band.
func (s *BandsService) Update(ctx context.Context, id, name string) error {
	body := map[string]string{"name": name}
	return s.client.put(ctx, fmt.Sprintf("%s/update/%s", bandController, url.PathEscape(id)), body, nil)
}

// Delete removes a band.
func (s *BandsService) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, fmt.Sprintf("%s/delete/%s", bandController, url.PathEscape(id)))
}
