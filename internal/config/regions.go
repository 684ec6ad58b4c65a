package config

// Region is an Indian state or union territory.
type Region struct {
	Name string
	Type string // "states" or "union-territories"
}

var Regions = []Region{
	{"andhra-pradesh", "states"},
	{"arunachal-pradesh", "states"},
	{"assam", "states"},
	{"bihar", "states"},
	{"chhattisgarh", "states"},
	{"goa", "states"},
	{"gujarat", "states"},
	{"haryana", "states"},
	{"himachal-pradesh", "states"},
	{"jharkhand", "states"},
	{"karnataka", "states"},
	{"kerala", "states"},
	{"madhya-pradesh", "states"},
	{"maharashtra", "states"},
	{"manipur", "states"},
	{"meghalaya", "states"},
	{"mizoram", "states"},
	{"nagaland", "states"},
	{"odisha", "states"},
	{"punjab", "states"},
	{"rajasthan", "states"},
	{"sikkim", "states"},
	{"tamil-nadu", "states"},
	{"telangana", "states"},
	{"tripura", "states"},
	{"uttar-pradesh", "states"},
	{"uttarakhand", "states"},
	{"west-bengal", "states"},
	{"andaman-and-nicobar-islands", "union-territories"},
	{"chandigarh", "union-territories"},
	{"dadra-and-nagar-haveli-and-daman-and-diu", "union-territories"},
	{"lakshadweep", "union-territories"},
	{"delhi", "union-territories"},
	{"puducherry", "union-territories"},
	{"jammu-and-kashmir", "union-territories"},
	{"ladakh", "union-territories"},
}

var regionByName = func() map[string]Region {
	m := make(map[string]Region, len(Regions))
	for _, r := range Regions {
		m[r.Name] = r
	}
	return m
}()

// KnownRegion reports whether name is one of the 36 states and UTs.
func KnownRegion(name string) bool {
	_, ok := regionByName[name]
	return ok
}
