package usgs

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/daterange"
)

func mustParseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestLevelsURLFullHistory(t *testing.T) {
	raw := LevelsURL("06047", nil)
	q := mustParseQuery(t, raw)

	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "06047", q.Get("countyCd"))
	assert.Equal(t, "active", q.Get("siteStatus"))
	assert.Equal(t, "GW", q.Get("siteType"))
	assert.False(t, q.Has("startDT"), "full-history URL must omit startDT")
	assert.False(t, q.Has("endDT"), "full-history URL must omit endDT")
}

func TestLevelsURLWithDateRange(t *testing.T) {
	rng := &daterange.Range{
		Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	q := mustParseQuery(t, LevelsURL("06019", rng))

	assert.Equal(t, "2020-01-01", q.Get("startDT"))
	assert.Equal(t, "2020-07-01", q.Get("endDT"))
}

func TestSitesURLUsesCountySuffix(t *testing.T) {
	q := mustParseQuery(t, SitesURL("06047"))

	assert.Equal(t, "06", q.Get("state_code"))
	assert.Equal(t, "047", q.Get("county_code"))
	assert.Equal(t, "GW", q.Get("site_type_code"))
	assert.Equal(t, "10000", q.Get("limit"))
	assert.Equal(t, "0", q.Get("offset"))
}
