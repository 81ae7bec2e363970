package counties

// County identifies a California county by its FIPS code as used by the USGS
// water services (state prefix "06" included).
type County struct {
	Code     string
	Name     string
	Priority bool
}

// Priority counties are the major agricultural and urban groundwater basins
// that the daily job covers by default.
var all = []County{
	{Code: "06001", Name: "Alameda"},
	{Code: "06003", Name: "Alpine"},
	{Code: "06005", Name: "Amador"},
	{Code: "06007", Name: "Butte"},
	{Code: "06009", Name: "Calaveras"},
	{Code: "06011", Name: "Colusa"},
	{Code: "06013", Name: "Contra Costa"},
	{Code: "06015", Name: "Del Norte"},
	{Code: "06017", Name: "El Dorado"},
	{Code: "06019", Name: "Fresno", Priority: true},
	{Code: "06021", Name: "Glenn"},
	{Code: "06023", Name: "Humboldt"},
	{Code: "06025", Name: "Imperial"},
	{Code: "06027", Name: "Inyo"},
	{Code: "06029", Name: "Kern", Priority: true},
	{Code: "06031", Name: "Kings", Priority: true},
	{Code: "06033", Name: "Lake"},
	{Code: "06035", Name: "Lassen"},
	{Code: "06037", Name: "Los Angeles", Priority: true},
	{Code: "06039", Name: "Madera", Priority: true},
	{Code: "06041", Name: "Marin"},
	{Code: "06043", Name: "Mariposa"},
	{Code: "06045", Name: "Mendocino"},
	{Code: "06047", Name: "Merced", Priority: true},
	{Code: "06049", Name: "Modoc"},
	{Code: "06051", Name: "Mono"},
	{Code: "06053", Name: "Monterey", Priority: true},
	{Code: "06055", Name: "Napa"},
	{Code: "06057", Name: "Nevada"},
	{Code: "06059", Name: "Orange", Priority: true},
	{Code: "06061", Name: "Placer"},
	{Code: "06063", Name: "Plumas"},
	{Code: "06065", Name: "Riverside", Priority: true},
	{Code: "06067", Name: "Sacramento", Priority: true},
	{Code: "06069", Name: "San Benito"},
	{Code: "06071", Name: "San Bernardino", Priority: true},
	{Code: "06073", Name: "San Diego", Priority: true},
	{Code: "06075", Name: "San Francisco"},
	{Code: "06077", Name: "San Joaquin", Priority: true},
	{Code: "06079", Name: "San Luis Obispo"},
	{Code: "06081", Name: "San Mateo"},
	{Code: "06083", Name: "Santa Barbara"},
	{Code: "06085", Name: "Santa Clara", Priority: true},
	{Code: "06087", Name: "Santa Cruz"},
	{Code: "06089", Name: "Shasta"},
	{Code: "06091", Name: "Sierra"},
	{Code: "06093", Name: "Siskiyou"},
	{Code: "06095", Name: "Solano"},
	{Code: "06097", Name: "Sonoma"},
	{Code: "06099", Name: "Stanislaus", Priority: true},
	{Code: "06101", Name: "Sutter"},
	{Code: "06103", Name: "Tehama"},
	{Code: "06105", Name: "Trinity"},
	{Code: "06107", Name: "Tulare", Priority: true},
	{Code: "06109", Name: "Tuolumne"},
	{Code: "06111", Name: "Ventura", Priority: true},
	{Code: "06113", Name: "Yolo", Priority: true},
	{Code: "06115", Name: "Yuba"},
}

// All returns every California county.
func All() []County {
	out := make([]County, len(all))
	copy(out, all)
	return out
}

// Priority returns the high-priority subset used by the daily job.
func Priority() []County {
	out := make([]County, 0, len(all))
	for _, c := range all {
		if c.Priority {
			out = append(out, c)
		}
	}
	return out
}

// ByCode looks up a county by its full FIPS code.
func ByCode(code string) (County, bool) {
	for _, c := range all {
		if c.Code == code {
			return c, true
		}
	}
	return County{}, false
}

// Name returns the county name for a code, or "Unknown" when the code is not
// in the catalog.
func Name(code string) string {
	if c, ok := ByCode(code); ok {
		return c.Name
	}
	return "Unknown"
}

// Select resolves an explicit list of county codes, preserving input order.
// Unknown codes are reported back so the caller can fail fast on typos.
func Select(codes []string) ([]County, []string) {
	selected := make([]County, 0, len(codes))
	var unknown []string
	for _, code := range codes {
		c, ok := ByCode(code)
		if !ok {
			unknown = append(unknown, code)
			continue
		}
		selected = append(selected, c)
	}
	return selected, unknown
}
