// Package api provides backend discovery API methods.
package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openvstorage/vpool-wizard/internal/models"
)

// ListBackends returns the backend candidates of an installation, filtered
// server-side by backend type. The "_dynamics" contents selector makes the
// API include the computed availability flag per entry.
func (c *Client) ListBackends(ctx context.Context, backendType string, conn ConnectionParams) ([]models.BackendListEntry, error) {
	query := url.Values{}
	query.Set("backend_type", backendType)
	query.Set("contents", "_dynamics")
	path := buildPath("backends", conn, query)

	var list models.BackendList
	if err := c.doRequest(ctx, path, query, &list); err != nil {
		return nil, fmt.Errorf("failed to list backends: %w", err)
	}
	return list.Data, nil
}

// GetBackendDetail returns the detail record of a single alba backend:
// availability, presets and per-ASD statistics.
func (c *Client) GetBackendDetail(ctx context.Context, guid string, conn ConnectionParams) (*models.BackendDetail, error) {
	query := url.Values{}
	query.Set("contents", "_dynamics")
	path := buildPath("alba/backends/"+guid+"/", conn, query)

	var detail models.BackendDetail
	if err := c.doRequest(ctx, path, query, &detail); err != nil {
		return nil, fmt.Errorf("failed to get backend %s: %w", guid, err)
	}
	return &detail, nil
}

// ListStorageNodes returns the storage nodes of the local installation,
// offered by the wizard for cache-tier re-use.
func (c *Client) ListStorageNodes(ctx context.Context) ([]models.StorageNode, error) {
	query := url.Values{}
	query.Set("contents", "_dynamics")

	var list struct {
		Data []models.StorageNode `json:"data"`
	}
	if err := c.doRequest(ctx, "/api/storagerouters", query, &list); err != nil {
		return nil, fmt.Errorf("failed to list storage nodes: %w", err)
	}
	return list.Data, nil
}
