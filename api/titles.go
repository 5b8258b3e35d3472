package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const titleController = "/api/Title"

// Title is a functional title maintained on the admin screens.
type Title struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TitleList is the title list endpoint's response envelope.
type TitleList struct {
	Titles     []Title `json:"functionalTitleModel"`
	TotalCount int     `json:"totalCount"`
}

// TitlesService calls the functional-title maintenance endpoints.
type TitlesService struct {
	client *Client
}

// List fetches one page of titles, optionally filtered by name.
// Endpoint: GET /api/Title/titleList/{page}/{pageSize}[/{name}]
func (s *TitlesService) List(ctx context.Context, page, pageSize int, name string) (*TitleList, error) {
	path := fmt.Sprintf("%s/titleList/%d/%d", titleController, page, pageSize)
	if search := strings.TrimSpace(name); search != "" {
		path += "/" + url.PathEscape(search)
	}

	var list TitleList
	if err := s.client.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Get fetches a single title by ID.
func (s *TitlesService) Get(ctx context.Context, id string) (*Title, error) {
	var title Title
	if err := s.client.get(ctx, fmt.Sprintf("%s/title/%s", titleController, url.PathEscape(id)), &title); err != nil {
		return nil, err
	}
	return &title, nil
}

// Create adds a new title.
func (s *TitlesService) Create(ctx context.Context, name string) error {
	body := map[string]string{"name": name}
	return s.client.post(ctx, titleController+"/create", body, nil)
}

// Update renames an existing title.
func (s *TitlesService) Update(ctx context.Context, id, name string) error {
	body := map[string]string{"name": name}
	return s.client.put(ctx, fmt.Sprintf("%s/update/%s", titleController, url.PathEscape(id)), body, nil)
}

// Delete removes a title.
func (s *TitlesService) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, fmt.Sprintf("%s/delete/%s", titleController, url.PathEscape(id)))
}
