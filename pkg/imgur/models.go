package imgur

import (
	"bytes"
	"encoding/json"
	"strconv"

	"imgurstats/pkg/stats"
)

// Envelope is the wrapper imgur puts around every JSON payload.
type Envelope struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Status  int             `json:"status"`
}

// defaultEnvelope stands in for a body that is not valid JSON.
func defaultEnvelope() Envelope {
	return Envelope{Data: json.RawMessage(`{}`), Success: false, Status: -1}
}

// Count is a number that imgur sometimes sends as a string or null.
type Count int64

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*c = Count(stats.ScoreValue(v))
	return nil
}

// Flag is a boolean that may arrive as a bool, a number or null.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch s := string(bytes.TrimSpace(data)); s {
	case "true":
		*f = true
	case "false", "null", `""`:
		*f = false
	default:
		n, err := strconv.ParseFloat(s, 64)
		*f = Flag(err == nil && n != 0)
	}
	return nil
}

// Submission is one post from the account submissions listing.
type Submission struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Type          string      `json:"type"`
	Views         Count       `json:"views"`
	Points        Count       `json:"points"`
	Ups           Count       `json:"ups"`
	Downs         Count       `json:"downs"`
	CommentCount  Count       `json:"comment_count"`
	FavoriteCount Count       `json:"favorite_count"`
	InMostViral   Flag        `json:"in_most_viral"`
	Datetime      Count       `json:"datetime"`
	IsAlbum       Flag        `json:"is_album"`
	Images        []PostImage `json:"images"`
}

// PostImage is one image inside an album submission.
type PostImage struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Views Count  `json:"views"`
}

// ImageMeta is one image from the account's image listing. Its view count is
// always empty; views come from the views endpoint.
type ImageMeta struct {
	Hash        string `json:"hash"`
	Ext         string `json:"ext"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Name        string `json:"name"`
	MimeType    string `json:"mimetype"`
}

// ImagesPage is one page of the image listing.
type ImagesPage struct {
	Count  Count       `json:"count"`
	Images []ImageMeta `json:"images"`
}

// Hashes returns the non-empty hashes of the page in order.
func (p *ImagesPage) Hashes() []string {
	hashes := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img.Hash != "" {
			hashes = append(hashes, img.Hash)
		}
	}
	return hashes
}

// Views maps hashes to view counts as returned by the views endpoint, in
// response order.
type Views []stats.Entry

func (v *Views) UnmarshalJSON(data []byte) error {
	entries, err := stats.DecodeScoreObject(data)
	if err != nil {
		return err
	}
	*v = entries
	return nil
}

// Entries returns the views as ledger entries.
func (v Views) Entries() []stats.Entry {
	return []stats.Entry(v)
}

// Account is the signed-in account from /3/account/me.
type Account struct {
	URL          string `json:"url"`
	IsSubscribed Flag   `json:"is_subscribed"`
}
