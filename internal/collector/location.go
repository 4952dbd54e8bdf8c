package collector

import "strings"

const defaultLocation = "Datacenter-01"

// locationPatterns map hostname fragments to location tags, checked in order.
var locationPatterns = []struct {
	fragment string
	location string
}{
	{"web", "Web Server Farm"},
	{"db", "Database Cluster"},
	{"cache", "Cache Layer"},
	{"api", "API Gateway"},
}

// resolveLocation returns the override when set, otherwise infers a tag
// from the hostname.
func resolveLocation(override, hostname string) string {
	if loc := strings.TrimSpace(override); loc != "" {
		return loc
	}
	name := strings.ToLower(hostname)
	for _, p := range locationPatterns {
		if strings.Contains(name, p.fragment) {
			return p.location
		}
	}
	return defaultLocation
}
