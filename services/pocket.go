package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"flow-api/domain"
)

const defaultPocketBase = "https://getpocket.com"

// Pocket mirror actions.
const (
	PocketActionFavorite = "favorite"
	PocketActionArchive  = "archive"
	PocketActionDelete   = "delete"
)

// Pocket is the read-later sync adapter. All calls are incremental against
// the caller-supplied watermark; the adapter itself holds no user state.
type Pocket struct {
	ConsumerKey string
	BaseURL     string
	HTTPClient  *http.Client
}

// NewPocket creates an adapter for the production pocket API.
func NewPocket(consumerKey string) *Pocket {
	return &Pocket{
		ConsumerKey: consumerKey,
		BaseURL:     defaultPocketBase,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type pocketItem struct {
	ItemID        string `json:"item_id"`
	ResolvedTitle string `json:"resolved_title"`
	GivenTitle    string `json:"given_title"`
	ResolvedURL   string `json:"resolved_url"`
	Status        string `json:"status"`
	Favorite      string `json:"favorite"`
}

type pocketGetResponse struct {
	List  map[string]pocketItem `json:"list"`
	Since int64                 `json:"since"`
}

// Sync fetches items added or changed since the given watermark and returns
// them with the new watermark for the caller to persist.
func (p *Pocket) Sync(ctx context.Context, accessToken string, since int64) ([]*domain.Readable, int64, error) {
	body := map[string]any{
		"consumer_key": p.ConsumerKey,
		"access_token": accessToken,
		"detailType":   "simple",
		"state":        "all",
	}
	if since > 0 {
		body["since"] = since
	}
	var resp pocketGetResponse
	if err := p.post(ctx, "/v3/get", body, &resp); err != nil {
		return nil, since, err
	}
	readables := []*domain.Readable{}
	for _, item := range resp.List {
		if item.ItemID == "" {
			continue
		}
		r := domain.NewReadable(domain.SourcePocket, item.ItemID)
		r.Title = item.ResolvedTitle
		if r.Title == "" {
			r.Title = item.GivenTitle
		}
		r.URL = item.ResolvedURL
		r.Read = item.Status == "1"
		r.Favorite = item.Favorite == "1"
		readables = append(readables, r)
	}
	watermark := resp.Since
	if watermark == 0 {
		watermark = since
	}
	return readables, watermark, nil
}

// UpdateArticle mirrors a local mutation (favorite, archive, delete) to the
// originating pocket item.
func (p *Pocket) UpdateArticle(ctx context.Context, accessToken, itemID, action string) error {
	actions := []map[string]any{{"action": action, "item_id": itemID}}
	body := map[string]any{
		"consumer_key": p.ConsumerKey,
		"access_token": accessToken,
		"actions":      actions,
	}
	return p.post(ctx, "/v3/send", body, nil)
}

type pocketRequestTokenResponse struct {
	Code string `json:"code"`
}

// RequestToken starts the pocket OAuth flow. It returns the request code to
// stash in the session and the URL to redirect the user to.
func (p *Pocket) RequestToken(ctx context.Context, redirectURI string) (code, authURL string, err error) {
	body := map[string]any{
		"consumer_key": p.ConsumerKey,
		"redirect_uri": redirectURI,
	}
	var resp pocketRequestTokenResponse
	if err := p.post(ctx, "/v3/oauth/request", body, &resp); err != nil {
		return "", "", err
	}
	if resp.Code == "" {
		return "", "", fmt.Errorf("pocket: empty request token")
	}
	authURL = p.BaseURL + "/auth/authorize?" + url.Values{
		"request_token": {resp.Code},
		"redirect_uri":  {redirectURI},
	}.Encode()
	return resp.Code, authURL, nil
}

type pocketAccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// AccessToken exchanges an authorized request code for an access token.
func (p *Pocket) AccessToken(ctx context.Context, code string) (string, error) {
	body := map[string]any{
		"consumer_key": p.ConsumerKey,
		"code":         code,
	}
	var resp pocketAccessTokenResponse
	if err := p.post(ctx, "/v3/oauth/authorize", body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("pocket: empty access token")
	}
	return resp.AccessToken, nil
}

func (p *Pocket) post(ctx context.Context, path string, body map[string]any, out any) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Accept", "application/json")
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pocket: %s returned %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, out)
}
