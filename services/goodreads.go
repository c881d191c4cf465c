package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"flow-api/domain"
)

const defaultGoodreadsBase = "https://www.goodreads.com"

// Goodreads fetches books from a user's shelf. The goodreads API speaks
// XML, so responses are decoded with encoding/xml.
type Goodreads struct {
	Key        string
	BaseURL    string
	HTTPClient *http.Client
}

// NewGoodreads creates an adapter for the production goodreads API.
func NewGoodreads(key string) *Goodreads {
	return &Goodreads{
		Key:        key,
		BaseURL:    defaultGoodreadsBase,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type goodreadsReviews struct {
	XMLName xml.Name `xml:"GoodreadsResponse"`
	Reviews struct {
		Review []struct {
			Book struct {
				ID      string `xml:"id"`
				Title   string `xml:"title"`
				Link    string `xml:"link"`
				Authors struct {
					Author []struct {
						Name string `xml:"name"`
					} `xml:"author"`
				} `xml:"authors"`
			} `xml:"book"`
		} `xml:"review"`
	} `xml:"reviews"`
}

// BooksOnShelf returns the books on the named shelf of the user's linked
// goodreads account. The goodreads user id comes from the integration
// credential map.
func (g *Goodreads) BooksOnShelf(ctx context.Context, u *domain.User, shelf string) ([]*domain.Readable, error) {
	grUserID := u.IntegrationProp("goodreads_user_id", "")
	if grUserID == "" {
		return nil, fmt.Errorf("goodreads: account not linked")
	}
	endpoint := fmt.Sprintf("%s/review/list/%s.xml?%s", g.BaseURL, url.PathEscape(grUserID), url.Values{
		"key":   {g.Key},
		"shelf": {shelf},
		"v":     {"2"},
	}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("goodreads: shelf fetch returned %d", resp.StatusCode)
	}
	var parsed goodreadsReviews
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	readables := []*domain.Readable{}
	for _, review := range parsed.Reviews.Review {
		if review.Book.ID == "" {
			continue
		}
		r := domain.NewReadable(domain.SourceGoodreads, review.Book.ID)
		r.Title = review.Book.Title
		r.URL = review.Book.Link
		if len(review.Book.Authors.Author) > 0 {
			r.Author = review.Book.Authors.Author[0].Name
		}
		readables = append(readables, r)
	}
	return readables, nil
}
