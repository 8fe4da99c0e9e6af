package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brewtrail/brewtrail/internal/vcache"
	"github.com/brewtrail/brewtrail/pkg/brewerydir"
	"github.com/brewtrail/brewtrail/pkg/overpass"
)

// mockDirectory implements brewerydir.Client for testing.
type mockDirectory struct {
	breweries []brewerydir.Brewery
	err       error
	calls     int
}

func (m *mockDirectory) SearchByDistance(_ context.Context, _, _ float64, _ int) ([]brewerydir.Brewery, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.breweries, nil
}

// mockSearch implements websearch.Client for testing.
type mockSearch struct {
	text  string
	err   error
	calls int
}

func (m *mockSearch) Search(_ context.Context, _ string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// mockOverpass implements overpass.Client for testing.
type mockOverpass struct {
	elements []overpass.Element
	err      error
	calls    int
}

func (m *mockOverpass) FindVenues(_ context.Context, _, _, _ float64) ([]overpass.Element, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.elements, nil
}

func testCache(t *testing.T) *vcache.Cache {
	t.Helper()
	c, err := vcache.Open(vcache.Options{
		Path:             t.TempDir() + "/cache.db",
		MemoryMaxEntries: 64,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
