// Package crm is the HTTP client for the surrounding CRM system. It backs
// the directory reads, entitlement checks and task persistence the engine
// needs. Reads outside the caller's visibility come back as nil, nil.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dealdesk/dealdesk/pkg/models"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{baseURL: baseURL, client: client}
}

func (c *Client) UserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User

	found, err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), &user)
	if err != nil || !found {
		return nil, err
	}

	return &user, nil
}

func (c *Client) ContactByID(ctx context.Context, contactID, scopeUserID string) (*models.Contact, error) {
	var contact models.Contact

	path := "/users/" + url.PathEscape(scopeUserID) + "/contacts/" + url.PathEscape(contactID)

	found, err := c.getJSON(ctx, path, &contact)
	if err != nil || !found {
		return nil, err
	}

	return &contact, nil
}

func (c *Client) ListingByID(ctx context.Context, listingID, scopeUserID string) (*models.Listing, error) {
	var listing models.Listing

	path := "/users/" + url.PathEscape(scopeUserID) + "/listings/" + url.PathEscape(listingID)

	found, err := c.getJSON(ctx, path, &listing)
	if err != nil || !found {
		return nil, err
	}

	return &listing, nil
}

func (c *Client) WorkspaceMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	path := "/workspaces/" + url.PathEscape(workspaceID) + "/members/" + url.PathEscape(userID)

	var membership struct {
		Member bool `json:"member"`
	}

	found, err := c.getJSON(ctx, path, &membership)
	if err != nil {
		return false, err
	}

	return found && membership.Member, nil
}

func (c *Client) HasEntitlement(ctx context.Context, userID, capability string) (bool, error) {
	path := "/users/" + url.PathEscape(userID) + "/entitlements/" + url.PathEscape(capability)

	var entitlement struct {
		Entitled bool `json:"entitled"`
	}

	found, err := c.getJSON(ctx, path, &entitlement)
	if err != nil {
		return false, err
	}

	return found && entitlement.Entitled, nil
}

func (c *Client) SaveTask(ctx context.Context, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("task request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("task endpoint returned %d", resp.StatusCode)
	}

	return nil
}

// getJSON reports found=false on a 404 so callers can translate missing
// records into nil results instead of errors.
func (c *Client) getJSON(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return false, fmt.Errorf("endpoint %s returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return true, nil
}
