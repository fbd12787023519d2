package types

// MetricKey is the name the SENEC portal uses for a telemetry series.
type MetricKey string

const (
	MetricAccuExport     MetricKey = "accuexport"
	MetricAccuImport     MetricKey = "accuimport"
	MetricGridImport     MetricKey = "gridimport"
	MetricGridExport     MetricKey = "gridexport"
	MetricPowerGenerated MetricKey = "powergenerated"
	MetricConsumption    MetricKey = "consumption"

	MetricAccuLevel MetricKey = "acculevel"
)

// StandardKeys can be queried from both the overview and the per-metric status
// endpoints. The order is the order lifetime totals are fetched in.
var StandardKeys = []MetricKey{
	MetricAccuExport,
	MetricAccuImport,
	MetricGridImport,
	MetricGridExport,
	MetricPowerGenerated,
	MetricConsumption,
}

// ExtraKeys are only reported by the overview endpoint and land in the battery
// bucket.
var ExtraKeys = []MetricKey{
	MetricAccuLevel,
}

// AllKeys returns the standard keys followed by the extra keys.
func AllKeys() []MetricKey {
	keys := make([]MetricKey, 0, len(StandardKeys)+len(ExtraKeys))
	keys = append(keys, StandardKeys...)
	return append(keys, ExtraKeys...)
}

// IsStandard returns true if k is one of StandardKeys.
func (k MetricKey) IsStandard() bool {
	for _, s := range StandardKeys {
		if s == k {
			return true
		}
	}
	return false
}

// IsExtra returns true if k is one of ExtraKeys.
func (k MetricKey) IsExtra() bool {
	for _, e := range ExtraKeys {
		if e == k {
			return true
		}
	}
	return false
}

// Now is the bucket entry name for the instantaneous value of k.
func (k MetricKey) Now() string {
	return string(k) + "_now"
}

// Today is the bucket entry name for the value accumulated today.
func (k MetricKey) Today() string {
	return string(k) + "_today"
}

// Total is the bucket entry name for the lifetime value.
func (k MetricKey) Total() string {
	return string(k) + "_total"
}
