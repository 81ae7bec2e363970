package usgs

import (
	"net/url"

	"github.com/wellpulse/groundwater-viewer/services/ingest/internal/daterange"
)

const (
	// LevelsBaseURL serves the groundwater-levels time series.
	LevelsBaseURL = "https://waterservices.usgs.gov/nwis/gwlevels/"
	// SitesBaseURL serves monitoring-location metadata (OGC API features).
	SitesBaseURL = "https://api.waterdata.usgs.gov/ogcapi/v0/collections/monitoring-locations/items"
)

// LevelsURL builds the groundwater-levels query for a county. A nil range
// requests the county's entire available history.
func LevelsURL(countyCode string, rng *daterange.Range) string {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("countyCd", countyCode)
	params.Set("indent", "on")
	params.Set("siteStatus", "active")
	params.Set("siteType", "GW")

	if rng != nil {
		params.Set("startDT", rng.StartDate())
		params.Set("endDT", rng.EndDate())
	}

	return LevelsBaseURL + "?" + params.Encode()
}

// SitesURL builds the monitoring-locations query for a county. The sites API
// keys counties by the 3-digit suffix of the FIPS code, with the state carried
// separately. A single 10k page is assumed sufficient for any one county.
func SitesURL(countyCode string) string {
	suffix := countyCode
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}

	params := url.Values{}
	params.Set("f", "json")
	params.Set("lang", "en-US")
	params.Set("limit", "10000")
	params.Set("skipGeometry", "false")
	params.Set("offset", "0")
	params.Set("state_code", "06")
	params.Set("county_code", suffix)
	params.Set("site_type_code", "GW")

	return SitesBaseURL + "?" + params.Encode()
}
