package usgs

import (
	"math"
	"strconv"
	"time"
)

// NormalizeLevels flattens a groundwater-levels envelope into canonical
// measurement records. Site-level fields repeat on every record. Entries whose
// value does not parse as a finite number are upstream placeholders and are
// dropped without error. Output order follows input order.
func NormalizeLevels(resp *LevelsResponse) []Measurement {
	var records []Measurement

	for _, series := range resp.Value.TimeSeries {
		var values []Value
		var methodID *int
		if len(series.Values) > 0 {
			values = series.Values[0].Value
			if len(series.Values[0].Method) > 0 {
				methodID = series.Values[0].Method[0].MethodID
			}
		}
		if len(values) == 0 {
			continue
		}

		site := series.SourceInfo
		lat := site.GeoLocation.GeogLocation.Latitude
		lon := site.GeoLocation.GeogLocation.Longitude

		var siteCode, agencyCode *string
		if len(site.SiteCode) > 0 {
			siteCode = strPtr(site.SiteCode[0].Value)
			agencyCode = strPtr(site.SiteCode[0].AgencyCode)
		}
		if siteCode == nil {
			// No identifier means no natural key; nothing usable here.
			continue
		}

		props := make(map[string]string, len(site.SiteProperty))
		for _, p := range site.SiteProperty {
			props[p.Name] = p.Value
		}

		variable := series.Variable
		var variableCode string
		var variableID *int
		if len(variable.VariableCode) > 0 {
			variableCode = variable.VariableCode[0].Value
			variableID = variable.VariableCode[0].VariableID
		}

		for _, v := range values {
			val, err := strconv.ParseFloat(v.Value, 64)
			if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
				continue
			}
			ts, err := time.Parse(time.RFC3339, v.DateTime)
			if err != nil {
				continue
			}

			qualifiers := v.Qualifiers
			if qualifiers == nil {
				qualifiers = []string{}
			}

			records = append(records, Measurement{
				MonitoringLocationID: *siteCode,
				SiteName:             strPtr(site.SiteName),
				AgencyCode:           agencyCode,
				HUCCode:              propPtr(props, "hucCd"),
				StateCode:            propPtr(props, "stateCd"),
				CountyCode:           propPtr(props, "countyCd"),
				Latitude:             &lat,
				Longitude:            &lon,
				VariableCode:         variableCode,
				VariableName:         strPtr(variable.VariableName),
				VariableDescription:  strPtr(variable.VariableDescription),
				Unit:                 strPtr(variable.Unit.UnitCode),
				VariableID:           variableID,
				MeasurementTime:      ts,
				MeasurementValue:     val,
				Qualifiers:           qualifiers,
				MethodID:             methodID,
			})
		}
	}

	return records
}

// NormalizeSites flattens an OGC features envelope into canonical site
// records. Features without an id are skipped; missing attributes stay nil.
func NormalizeSites(resp *SitesResponse) []Site {
	sites := make([]Site, 0, len(resp.Features))

	for _, f := range resp.Features {
		if f.ID == "" {
			continue
		}

		p := f.Properties
		site := Site{
			MonitoringLocationID:     f.ID,
			AgencyCode:               p.AgencyCode,
			MonitoringLocationNumber: p.MonitoringLocationNumber,
			MonitoringLocationName:   p.MonitoringLocationName,
			StateCode:                p.StateCode,
			CountyCode:               p.CountyCode,
			SiteTypeCode:             p.SiteTypeCode,
			HydrologicUnitCode:       p.HydrologicUnitCode,
			AquiferTypeCode:          p.AquiferTypeCode,
			AquiferCode:              p.AquiferCode,
			VerticalDatum:            p.VerticalDatum,
		}

		if p.Altitude != nil {
			if alt, err := strconv.ParseFloat(*p.Altitude, 64); err == nil {
				site.Altitude = &alt
			}
		}
		if f.Geometry != nil && len(f.Geometry.Coordinates) >= 2 {
			lon := f.Geometry.Coordinates[0]
			lat := f.Geometry.Coordinates[1]
			site.Longitude = &lon
			site.Latitude = &lat
		}

		sites = append(sites, site)
	}

	return sites
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func propPtr(props map[string]string, name string) *string {
	if v, ok := props[name]; ok && v != "" {
		return &v
	}
	return nil
}
