package api

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

// Integration property keys stored on the user record.
const (
	propPocketAccessToken = "pocket_access_token"
	propPocketWatermark   = "pocket_last_timestamp"
)

const sessionPocketCode = "pocket_code"

const defaultShelf = "currently-reading"

// updateIntegrationSettings saves the named integration properties from the
// request. The props param lists which fields to read; an empty value clears
// the property.
func updateIntegrationSettings(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		props := getList(c, "props")
		for _, prop := range props {
			value := ""
			if v := getString(c, prop); v != nil {
				value = *v
			}
			u.SetIntegrationProp(prop, value)
		}
		if err := d.Store.PutUser(c.Request().Context(), u); err != nil {
			d.Log.Errorf("put user: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, fmt.Sprintf("%d properties saved", len(props)), map[string]any{"user": u.Public()})
	}
}

func goodreadsShelf(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		shelf := defaultShelf
		if s := getString(c, "shelf"); s != nil && *s != "" {
			shelf = *s
		}
		readables, err := d.Shelf.BooksOnShelf(ctx, u, shelf)
		if err != nil {
			d.Log.Warnf("goodreads shelf: %v", err)
			return respond(c, false, "An error occurred", map[string]any{"readables": []any{}})
		}
		if _, err := d.Store.PutReadables(ctx, u.ID, readables); err != nil {
			d.Log.Errorf("put readables: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"readables": readables})
	}
}

// pocketSync pulls articles changed since the user's stored watermark and
// advances it. The response carries only the still-unread items.
func pocketSync(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		accessToken := u.IntegrationProp(propPocketAccessToken, "")
		if accessToken == "" {
			return respond(c, false, "Pocket not connected", map[string]any{"readables": []any{}})
		}
		since := u.IntegrationInt(propPocketWatermark, 0)
		readables, watermark, err := d.Pocket.Sync(ctx, accessToken, since)
		if err != nil {
			d.Log.Warnf("pocket sync: %v", err)
			return respond(c, false, "An error occurred", map[string]any{"readables": []any{}})
		}
		if _, err := d.Store.PutReadables(ctx, u.ID, readables); err != nil {
			d.Log.Errorf("put readables: %v", err)
			return respond(c, false, "", nil)
		}
		if watermark > since {
			u.SetIntegrationProp(propPocketWatermark, strconv.FormatInt(watermark, 10))
			if err := d.Store.PutUser(ctx, u); err != nil {
				d.Log.Errorf("put user: %v", err)
			}
		}
		unread := []*domain.Readable{}
		for _, r := range readables {
			if !r.Read {
				unread = append(unread, r)
			}
		}
		return respond(c, true, "", map[string]any{"readables": unread})
	}
}

// pocketAuthenticate starts the connect flow: fetch a request token, stash
// it on the session, and hand the authorization URL back to the client.
func pocketAuthenticate(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		redirectURI := c.Scheme() + "://" + c.Request().Host
		if v := getString(c, "redirect_uri"); v != nil && *v != "" {
			redirectURI = *v
		}
		code, authURL, err := d.Pocket.RequestToken(ctx, redirectURI)
		if err != nil {
			d.Log.Warnf("pocket request token: %v", err)
			return respond(c, false, "An error occurred", map[string]any{"redirect": nil})
		}
		token, ok := sessionToken(c)
		if !ok {
			return unauthorized(c)
		}
		if err := d.Sessions.SetValue(ctx, token, sessionPocketCode, code); err != nil {
			d.Log.Errorf("stash pocket code: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"redirect": authURL})
	}
}

// pocketAuthorize finishes the connect flow once the user has approved
// access, swapping the stashed request code for an access token.
func pocketAuthorize(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		token, ok := sessionToken(c)
		if !ok {
			return unauthorized(c)
		}
		code, err := d.Sessions.Value(ctx, token, sessionPocketCode)
		if err != nil || code == "" {
			return respond(c, false, "No pending Pocket authorization", map[string]any{"user": nil})
		}
		accessToken, err := d.Pocket.AccessToken(ctx, code)
		if err != nil {
			d.Log.Warnf("pocket access token: %v", err)
			return respond(c, false, "An error occurred", map[string]any{"user": nil})
		}
		u.SetIntegrationProp(propPocketAccessToken, accessToken)
		if err := d.Store.PutUser(ctx, u); err != nil {
			d.Log.Errorf("put user: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"user": u.Public()})
	}
}

func pocketDisconnect(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		u.SetIntegrationProp(propPocketAccessToken, "")
		u.SetIntegrationProp(propPocketWatermark, "")
		if err := d.Store.PutUser(c.Request().Context(), u); err != nil {
			d.Log.Errorf("put user: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"user": u.Public()})
	}
}
