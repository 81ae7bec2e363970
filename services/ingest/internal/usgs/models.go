package usgs

import "time"

// LevelsResponse is the envelope returned by the groundwater-levels service:
// a list of per-site, per-variable time series.
type LevelsResponse struct {
	Value struct {
		TimeSeries []TimeSeries `json:"timeSeries"`
	} `json:"value"`
}

// TimeSeries groups the values of one variable at one site.
type TimeSeries struct {
	SourceInfo SourceInfo  `json:"sourceInfo"`
	Variable   Variable    `json:"variable"`
	Values     []ValueList `json:"values"`
}

// SourceInfo carries site identity, geolocation and named site properties.
type SourceInfo struct {
	SiteName string     `json:"siteName"`
	SiteCode []SiteCode `json:"siteCode"`
	GeoLocation struct {
		GeogLocation struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"geogLocation"`
	} `json:"geoLocation"`
	SiteProperty []SiteProperty `json:"siteProperty"`
}

// SiteCode pairs a site identifier with its managing agency.
type SiteCode struct {
	Value      string `json:"value"`
	AgencyCode string `json:"agencyCode"`
}

// SiteProperty is an upstream name/value attribute (hucCd, countyCd, stateCd).
type SiteProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variable describes the measured quantity.
type Variable struct {
	VariableCode        []VariableCode `json:"variableCode"`
	VariableName        string         `json:"variableName"`
	VariableDescription string         `json:"variableDescription"`
	Unit                struct {
		UnitCode string `json:"unitCode"`
	} `json:"unit"`
}

// VariableCode pairs the variable's code with its numeric id.
type VariableCode struct {
	Value      string `json:"value"`
	VariableID *int   `json:"variableID"`
}

// ValueList is one run of values with its collection method.
type ValueList struct {
	Value  []Value  `json:"value"`
	Method []Method `json:"method"`
}

// Value is a single raw measurement. The value arrives as a string and may be
// a non-numeric sentinel the upstream uses for missing data.
type Value struct {
	Value      string   `json:"value"`
	DateTime   string   `json:"dateTime"`
	Qualifiers []string `json:"qualifiers"`
}

// Method identifies how a run of values was collected.
type Method struct {
	MethodID *int `json:"methodID"`
}

// Measurement is the canonical persisted record. The triple
// (MonitoringLocationID, MeasurementTime, VariableCode) is the natural key.
type Measurement struct {
	MonitoringLocationID string
	SiteName             *string
	AgencyCode           *string
	HUCCode              *string
	StateCode            *string
	CountyCode           *string
	Latitude             *float64
	Longitude            *float64
	VariableCode         string
	VariableName         *string
	VariableDescription  *string
	Unit                 *string
	VariableID           *int
	MeasurementTime      time.Time
	MeasurementValue     float64
	Qualifiers           []string
	MethodID             *int
}

// SitesResponse is the OGC API features envelope from the sites service.
type SitesResponse struct {
	Features []SiteFeature `json:"features"`
}

// SiteFeature is one monitoring location feature.
type SiteFeature struct {
	ID       string `json:"id"`
	Geometry *struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties SiteProperties `json:"properties"`
}

// SiteProperties carries the static attributes of a monitoring location.
type SiteProperties struct {
	AgencyCode               *string `json:"agency_code"`
	MonitoringLocationNumber *string `json:"monitoring_location_number"`
	MonitoringLocationName   *string `json:"monitoring_location_name"`
	StateCode                *string `json:"state_code"`
	CountyCode               *string `json:"county_code"`
	SiteTypeCode             *string `json:"site_type_code"`
	HydrologicUnitCode       *string `json:"hydrologic_unit_code"`
	AquiferCode              *string `json:"aquifer_code"`
	AquiferTypeCode          *string `json:"aquifer_type_code"`
	Altitude                 *string `json:"altitude"`
	VerticalDatum            *string `json:"vertical_datum"`
}

// Site is the canonical monitoring-site record, keyed by
// MonitoringLocationID alone.
type Site struct {
	MonitoringLocationID     string
	AgencyCode               *string
	MonitoringLocationNumber *string
	MonitoringLocationName   *string
	StateCode                *string
	CountyCode               *string
	SiteTypeCode             *string
	HydrologicUnitCode       *string
	AquiferCode              *string
	AquiferTypeCode          *string
	Altitude                 *float64
	VerticalDatum            *string
	Latitude                 *float64
	Longitude                *float64
}
