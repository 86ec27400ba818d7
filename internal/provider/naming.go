package provider

import "strings"

// RelativeName strips the domain suffix from a fully qualified name. The apex
// maps to the empty label. Names outside the domain are returned unchanged.
func RelativeName(fqdn, domain string) string {
	name := strings.TrimSuffix(fqdn, ".")
	domain = strings.TrimSuffix(domain, ".")
	if strings.EqualFold(name, domain) {
		return ""
	}
	suffix := "." + domain
	if len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix) {
		return name[:len(name)-len(suffix)]
	}
	return fqdn
}

// FullName is the inverse of RelativeName.
func FullName(label, domain string) string {
	label = strings.TrimSuffix(label, ".")
	domain = strings.TrimSuffix(domain, ".")
	if label == "" || strings.EqualFold(label, domain) {
		return domain
	}
	if suffix := "." + domain; len(label) > len(suffix) && strings.EqualFold(label[len(label)-len(suffix):], suffix) {
		return label
	}
	return label + "." + domain
}
