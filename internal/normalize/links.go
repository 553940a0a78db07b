package normalize

import (
	"net/url"
	"strings"
)

const (
	hotelSearchBase = "https://www.booking.com/searchresults.html"
	webSearchBase   = "https://www.google.com/search"
)

var (
	linkCandidateKeys = []string{"url", "booking_url", "ticket_url", "link", "external_url"}
	placeholderHosts  = []string{"example.com", "example.org", "example.net"}
)

// LinkSource is the part of a hotel or experience record the link resolver reads.
type LinkSource struct {
	Name       string
	Location   string
	Candidates []string
}

func linkSourceFromRaw(m map[string]any, name, location string) LinkSource {
	src := LinkSource{Name: name, Location: location}
	for _, key := range linkCandidateKeys {
		if s, ok := m[key].(string); ok {
			src.Candidates = append(src.Candidates, s)
		}
	}
	return src
}

// ResolveHotelURL returns the first usable candidate or a booking search for the
// hotel. ok is false only when the hotel has no name.
func ResolveHotelURL(src LinkSource) (string, bool) {
	if link, ok := firstValidLink(src.Candidates); ok {
		return link, true
	}
	name := cleanText(src.Name)
	if name == "" {
		return "", false
	}
	q := url.Values{}
	q.Set("ss", joinNonEmpty(name, cleanText(src.Location)))
	return hotelSearchBase + "?" + q.Encode(), true
}

// ResolveExperienceURL returns the first usable candidate or a ticket web search.
func ResolveExperienceURL(src LinkSource) (string, bool) {
	if link, ok := firstValidLink(src.Candidates); ok {
		return link, true
	}
	name := cleanText(src.Name)
	if name == "" {
		return "", false
	}
	q := url.Values{}
	q.Set("q", joinNonEmpty(name, cleanText(src.Location), "billetter"))
	return webSearchBase + "?" + q.Encode(), true
}

func firstValidLink(candidates []string) (string, bool) {
	for _, c := range candidates {
		if link, ok := SanitizeURL(c); ok {
			return link, true
		}
	}
	return "", false
}

// SanitizeURL accepts absolute http(s) URLs that do not point at a placeholder
// domain. Control characters and surrounding whitespace are removed first.
func SanitizeURL(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || strings.ContainsAny(cleaned, " \t") {
		return "", false
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !strings.Contains(host, ".") {
		return "", false
	}
	for _, placeholder := range placeholderHosts {
		if host == placeholder || strings.HasSuffix(host, "."+placeholder) {
			return "", false
		}
	}
	return u.String(), true
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
