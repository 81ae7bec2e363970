package usgs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const levelsFixture = `{
  "value": {
    "timeSeries": [
      {
        "sourceInfo": {
          "siteName": "017S012E08A001M",
          "siteCode": [{"value": "372015121302501", "agencyCode": "USGS"}],
          "geoLocation": {"geogLocation": {"latitude": 37.3375, "longitude": -121.5069}},
          "siteProperty": [
            {"name": "hucCd", "value": "18040002"},
            {"name": "stateCd", "value": "06"},
            {"name": "countyCd", "value": "06047"}
          ]
        },
        "variable": {
          "variableCode": [{"value": "72019", "variableID": 52331280}],
          "variableName": "Depth to water level",
          "variableDescription": "Depth to water level, feet below land surface",
          "unit": {"unitCode": "ft"}
        },
        "values": [
          {
            "value": [
              {"value": "12.3", "dateTime": "2024-01-05T11:30:00.000-08:00", "qualifiers": ["A"]},
              {"value": "abc", "dateTime": "2024-01-06T11:30:00.000-08:00", "qualifiers": []},
              {"value": "-4.5", "dateTime": "2024-01-07T11:30:00.000-08:00", "qualifiers": ["P"]},
              {"value": "", "dateTime": "2024-01-08T11:30:00.000-08:00"}
            ],
            "method": [{"methodID": 17}]
          }
        ]
      },
      {
        "sourceInfo": {
          "siteName": "empty series",
          "siteCode": [{"value": "999", "agencyCode": "USGS"}],
          "geoLocation": {"geogLocation": {"latitude": 0, "longitude": 0}}
        },
        "variable": {"variableCode": [{"value": "72019"}]},
        "values": [{"value": []}]
      }
    ]
  }
}`

func TestNormalizeLevelsDropsNonNumericValues(t *testing.T) {
	var resp LevelsResponse
	require.NoError(t, json.Unmarshal([]byte(levelsFixture), &resp))

	records := NormalizeLevels(&resp)
	require.Len(t, records, 2, "non-numeric entries must be dropped silently")

	assert.Equal(t, 12.3, records[0].MeasurementValue)
	assert.Equal(t, -4.5, records[1].MeasurementValue)
	assert.True(t, records[0].MeasurementTime.Before(records[1].MeasurementTime),
		"input order must be preserved")
}

func TestNormalizeLevelsSiteFieldsRepeatPerRecord(t *testing.T) {
	var resp LevelsResponse
	require.NoError(t, json.Unmarshal([]byte(levelsFixture), &resp))

	records := NormalizeLevels(&resp)
	require.Len(t, records, 2)

	for _, rec := range records {
		assert.Equal(t, "372015121302501", rec.MonitoringLocationID)
		require.NotNil(t, rec.AgencyCode)
		assert.Equal(t, "USGS", *rec.AgencyCode)
		require.NotNil(t, rec.CountyCode)
		assert.Equal(t, "06047", *rec.CountyCode)
		require.NotNil(t, rec.HUCCode)
		assert.Equal(t, "18040002", *rec.HUCCode)
		assert.Equal(t, "72019", rec.VariableCode)
		require.NotNil(t, rec.VariableID)
		assert.Equal(t, 52331280, *rec.VariableID)
		require.NotNil(t, rec.Latitude)
		assert.InDelta(t, 37.3375, *rec.Latitude, 1e-9)
		require.NotNil(t, rec.MethodID)
		assert.Equal(t, 17, *rec.MethodID)
	}

	assert.Equal(t, []string{"A"}, records[0].Qualifiers)
	assert.Equal(t, []string{"P"}, records[1].Qualifiers)
}

func TestNormalizeLevelsQualifiersNeverNil(t *testing.T) {
	fixture := `{"value":{"timeSeries":[{
      "sourceInfo":{"siteCode":[{"value":"1","agencyCode":"USGS"}],
        "geoLocation":{"geogLocation":{"latitude":1,"longitude":2}}},
      "variable":{"variableCode":[{"value":"72019"}]},
      "values":[{"value":[{"value":"7.0","dateTime":"2024-02-01T00:00:00.000-08:00"}]}]
    }]}}`

	var resp LevelsResponse
	require.NoError(t, json.Unmarshal([]byte(fixture), &resp))

	records := NormalizeLevels(&resp)
	require.Len(t, records, 1)
	assert.NotNil(t, records[0].Qualifiers)
	assert.Empty(t, records[0].Qualifiers)
}

func TestNormalizeLevelsEmptyEnvelope(t *testing.T) {
	var resp LevelsResponse
	require.NoError(t, json.Unmarshal([]byte(`{"value":{"timeSeries":[]}}`), &resp))
	assert.Empty(t, NormalizeLevels(&resp))
}

const sitesFixture = `{
  "features": [
    {
      "id": "USGS-372015121302501",
      "geometry": {"coordinates": [-121.5069, 37.3375]},
      "properties": {
        "agency_code": "USGS",
        "monitoring_location_number": "372015121302501",
        "monitoring_location_name": "017S012E08A001M",
        "state_code": "06",
        "county_code": "047",
        "site_type_code": "GW",
        "hydrologic_unit_code": "18040002",
        "aquifer_code": "112SNJQV",
        "aquifer_type_code": "U",
        "altitude": "85.4",
        "vertical_datum": "NGVD29"
      }
    },
    {
      "id": "",
      "properties": {}
    },
    {
      "id": "USGS-sparse",
      "properties": {"altitude": "not-a-number"}
    }
  ]
}`

func TestNormalizeSites(t *testing.T) {
	var resp SitesResponse
	require.NoError(t, json.Unmarshal([]byte(sitesFixture), &resp))

	sites := NormalizeSites(&resp)
	require.Len(t, sites, 2, "features without an id must be skipped")

	full := sites[0]
	assert.Equal(t, "USGS-372015121302501", full.MonitoringLocationID)
	require.NotNil(t, full.Altitude)
	assert.InDelta(t, 85.4, *full.Altitude, 1e-9)
	require.NotNil(t, full.Longitude)
	assert.InDelta(t, -121.5069, *full.Longitude, 1e-9)
	require.NotNil(t, full.AquiferCode)
	assert.Equal(t, "112SNJQV", *full.AquiferCode)

	sparse := sites[1]
	assert.Equal(t, "USGS-sparse", sparse.MonitoringLocationID)
	assert.Nil(t, sparse.Altitude, "unparseable altitude stays nil")
	assert.Nil(t, sparse.Latitude)
}
