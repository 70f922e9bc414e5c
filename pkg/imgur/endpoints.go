package imgur

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// SubmissionsEndpoint lists an account's posts, newest first
	SubmissionsEndpoint = "/3/account/%s/submissions/%d/newest"

	// AccountEndpoint resolves the signed-in account
	AccountEndpoint = "/3/account/me"

	// ImagesEndpoint lists an account's images without view counts
	ImagesEndpoint = "/ajax/images"

	// ViewsEndpoint returns view counts for a batch of hashes
	ViewsEndpoint = "/ajax/views"

	// MaxViewsBatch is the largest hash batch sent to the views endpoint
	MaxViewsBatch = 60
)

// Endpoints builds imgur URLs from the configured base URLs.
type Endpoints struct {
	APIBaseURL      string
	WebBaseURL      string
	SiteURLTemplate string
	ClientID        string
}

// SubmissionsURL is the URL of one page of an account's posts.
func (e Endpoints) SubmissionsURL(user string, page int) string {
	params := url.Values{}
	params.Set("album_previews", "1")
	params.Set("client_id", e.ClientID)

	path := fmt.Sprintf(SubmissionsEndpoint, url.PathEscape(user), page)
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(e.APIBaseURL, "/"), path, params.Encode())
}

// AccountURL is the URL of the signed-in account lookup.
func (e Endpoints) AccountURL() string {
	params := url.Values{}
	params.Set("client_id", e.ClientID)
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(e.APIBaseURL, "/"), AccountEndpoint, params.Encode())
}

// SiteURL is the base of an account's own subdomain.
func (e Endpoints) SiteURL(user string) string {
	return strings.TrimRight(strings.ReplaceAll(e.SiteURLTemplate, "{user}", user), "/")
}

// ImagesURL is the URL of one page of an account's image listing.
func (e Endpoints) ImagesURL(user string, page, perPage int) string {
	if perPage <= 0 || perPage > MaxViewsBatch {
		perPage = MaxViewsBatch
	}
	return fmt.Sprintf("%s%s?sort=0&order=1&album=0&page=%d&perPage=%d", e.SiteURL(user), ImagesEndpoint, page, perPage)
}

// ViewsURL is the URL of the view counts of hashes.
func (e Endpoints) ViewsURL(user string, hashes []string) string {
	return fmt.Sprintf("%s%s?images=%s", e.SiteURL(user), ViewsEndpoint, strings.Join(hashes, ","))
}

// PostsReferer is the page a browser would be on while listing posts.
func (e Endpoints) PostsReferer(user string) string {
	return fmt.Sprintf("%s/user/%s/posts", strings.TrimRight(e.WebBaseURL, "/"), user)
}

// UploadReferer is the page a browser would be on while resolving the account.
func (e Endpoints) UploadReferer() string {
	return strings.TrimRight(e.WebBaseURL, "/") + "/upload?beta"
}

// PostURL is the public URL of a post.
func (e Endpoints) PostURL(hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(e.WebBaseURL, "/"), hash)
}

// ImageURL is the direct URL of an image file.
func ImageURL(hash, ext string) string {
	return fmt.Sprintf("https://i.imgur.com/%s.%s", hash, ext)
}

// IsValidUsername checks that name can be used as an account scope. The
// scope also names store keys, so only word characters are allowed.
func IsValidUsername(name string) bool {
	if name == "" || len(name) > 63 {
		return false
	}
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces.
func SanitizeUsername(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "@")
	return strings.TrimRight(name, "/ ")
}
