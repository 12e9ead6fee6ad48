package rcsb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entryJSON = `{
  "rcsb_id": "1BNA",
  "struct": {"title": "STRUCTURE OF A B-DNA DODECAMER", "pdbx_descriptor": "DNA (5'-D(*CP*GP*CP*GP*AP*AP*TP*TP*CP*GP*CP*G)-3')"},
  "rcsb_entry_info": {"resolution_combined": [1.9]},
  "rcsb_entity_source_organism": [{"scientific_name": "synthetic construct"}]
}`

func server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entry/1BNA":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(entryJSON))
		case "/entry/BAD0":
			_, _ = w.Write([]byte("{not json"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := server(t)
	c := NewClient(srv.Client(), srv.URL+"/entry/{id}", nil)

	m, err := c.Fetch(context.Background(), "1bna")
	require.NoError(t, err)
	assert.Equal(t, Metadata{
		ID:          "1BNA",
		Title:       "STRUCTURE OF A B-DNA DODECAMER",
		Description: "DNA (5'-D(*CP*GP*CP*GP*AP*AP*TP*TP*CP*GP*CP*G)-3')",
		Resolution:  "1.90 Å",
		Organism:    "synthetic construct",
	}, m)
}

func TestLookupFallsBack(t *testing.T) {
	srv := server(t)
	c := NewClient(srv.Client(), srv.URL+"/entry/{id}", nil)

	_, err := c.Fetch(context.Background(), "0000")
	assert.Error(t, err)
	assert.Equal(t, Fallback("0000"), c.Lookup(context.Background(), "0000"))
	assert.Equal(t, "Structure BAD0", c.Lookup(context.Background(), "BAD0").Title)
	assert.Equal(t, "Metadata not available", Fallback("X").Description)
}

func TestDefaultClientHasTimeout(t *testing.T) {
	c := NewClient(nil, "", nil)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}
