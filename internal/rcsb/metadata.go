// Package rcsb looks up entry metadata from the RCSB PDB data API
package rcsb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultURLTemplate is the RCSB core entry endpoint
const DefaultURLTemplate = "https://data.rcsb.org/rest/v1/core/entry/{id}"

// Metadata describes a PDB entry
type Metadata struct {
	ID          string
	Title       string
	Description string
	Resolution  string
	Organism    string
}

// Fallback is reported when the lookup fails
func Fallback(id string) Metadata {
	return Metadata{
		ID:          id,
		Title:       "Structure " + id,
		Description: "Metadata not available",
	}
}

type entry struct {
	RcsbID string `json:"rcsb_id"`
	Struct struct {
		Title      string `json:"title"`
		Descriptor string `json:"pdbx_descriptor"`
	} `json:"struct"`
	EntryInfo struct {
		Resolution []float64 `json:"resolution_combined"`
	} `json:"rcsb_entry_info"`
	SourceOrganism []struct {
		ScientificName string `json:"scientific_name"`
	} `json:"rcsb_entity_source_organism"`
}

// DefaultTimeout bounds a lookup made with the default HTTP client
const DefaultTimeout = 15 * time.Second

// Client fetches entry metadata
type Client struct {
	http        *http.Client
	urlTemplate string
	logger      *slog.Logger
}

// NewClient creates a client. Empty arguments select the defaults.
func NewClient(httpClient *http.Client, urlTemplate string, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{http: httpClient, urlTemplate: urlTemplate, logger: logger}
}

// Fetch returns the metadata of a PDB entry
func (c *Client) Fetch(ctx context.Context, id string) (Metadata, error) {
	url := strings.ReplaceAll(c.urlTemplate, "{id}", strings.ToUpper(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Metadata{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("fetch metadata for %s: %s", id, resp.Status)
	}

	var e entry
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}

	m := Metadata{
		ID:          e.RcsbID,
		Title:       e.Struct.Title,
		Description: e.Struct.Descriptor,
	}
	if m.ID == "" {
		m.ID = strings.ToUpper(id)
	}
	if len(e.EntryInfo.Resolution) > 0 {
		m.Resolution = fmt.Sprintf("%.2f Å", e.EntryInfo.Resolution[0])
	}
	if len(e.SourceOrganism) > 0 {
		m.Organism = e.SourceOrganism[0].ScientificName
	}
	return m, nil
}

// Lookup is Fetch with the fallback applied on any error
func (c *Client) Lookup(ctx context.Context, id string) Metadata {
	m, err := c.Fetch(ctx, id)
	if err != nil {
		c.logger.Warn("metadata unavailable, using fallback", "id", id, "error", err)
		return Fallback(id)
	}
	return m
}
