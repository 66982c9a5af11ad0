package classify

import (
	"regexp"
	"strings"

	"linkstash/pkg/models"
)

const pinterestOrigin = "https://www.pinterest.com"

var pinterestPin = regexp.MustCompile(`^/pin/(\d+)/?$`)

// Pinterest classifies pin links on any pinterest host, canonicalised with
// a trailing slash and no query or fragment.
func Pinterest(href string) (models.DiscoveredItem, bool) {
	u, ok := parse(href, pinterestOrigin)
	if !ok || !isPinterestHost(u.Hostname()) {
		return models.DiscoveredItem{}, false
	}
	m := pinterestPin.FindStringSubmatch(u.Path)
	if m == nil {
		return models.DiscoveredItem{}, false
	}
	return models.DiscoveredItem{
		URL:       "https://" + strings.ToLower(u.Host) + "/pin/" + m[1] + "/",
		MediaKind: models.MediaPicture,
	}, true
}

// isPinterestHost accepts pinterest.com, regional TLDs like pinterest.ca
// and country subdomains like ca.pinterest.com.
func isPinterestHost(host string) bool {
	host = strings.ToLower(host)
	labels := strings.Split(host, ".")
	for i, l := range labels {
		if l == "pinterest" && i < len(labels)-1 {
			return true
		}
	}
	return false
}

// IsPinterestRoot reports whether pageURL is the home feed ("/")
func IsPinterestRoot(pageURL string) bool {
	u, ok := parse(pageURL, "")
	return ok && isPinterestHost(u.Hostname()) && (u.Path == "/" || u.Path == "")
}
