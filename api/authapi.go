package api

import (
	"fmt"
	"net/url"

	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

// googleLogin validates a Google ID token, finds or creates the matching
// user, and starts a cookie session.
func googleLogin(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		token := c.FormValue("token")
		identity, err := d.Auth.ValidateIDToken(token)
		if err != nil {
			d.Log.Warnf("google login rejected: %v", err)
			return respond(c, false, "Failed to validate", map[string]any{"user": nil})
		}
		u, err := d.Store.GetUserByEmail(ctx, identity.Email)
		if err != nil {
			d.Log.Errorf("user lookup: %v", err)
			return respond(c, false, "", map[string]any{"user": nil})
		}
		if u == nil {
			u = domain.NewUser(identity.Email, identity.Name)
			if err := d.Store.PutUser(ctx, u); err != nil {
				d.Log.Errorf("create user: %v", err)
				return respond(c, false, "", map[string]any{"user": nil})
			}
		}
		if _, err := d.Sessions.Create(ctx, c, u.ID); err != nil {
			d.Log.Errorf("create session: %v", err)
			return respond(c, false, "", map[string]any{"user": nil})
		}
		return respond(c, true, "Signed in", map[string]any{"user": u.Public()})
	}
}

// googleAuth handles the assistant account-linking handshake. The caller is
// redirected back to the platform with an opaque access token in the
// fragment.
func googleAuth(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		clientID := c.FormValue("client_id")
		redirectURI := c.FormValue("redirect_uri")
		state := c.FormValue("state")
		if clientID != "google" {
			return respond(c, false, "Unsupported client", map[string]any{"redirect": nil})
		}
		expected := fmt.Sprintf("https://oauth-redirect.googleusercontent.com/r/%s", d.GoogleProjectName)
		if redirectURI != expected {
			return respond(c, false, "Unexpected redirect URI", map[string]any{"redirect": nil})
		}
		u := d.currentUser(c)
		if u == nil {
			if identity, err := d.Auth.ValidateIDToken(c.FormValue("id_token")); err == nil {
				u, _ = d.Store.GetUserByEmail(ctx, identity.Email)
			}
		}
		if u == nil {
			return respond(c, false, "User not found", map[string]any{"redirect": nil})
		}
		accessToken, err := d.Tokens.Encode(u.ID, clientID)
		if err != nil {
			d.Log.Errorf("encode access token: %v", err)
			return respond(c, false, "", map[string]any{"redirect": nil})
		}
		q := url.Values{}
		q.Set("access_token", accessToken)
		q.Set("token_type", "bearer")
		q.Set("state", state)
		return respond(c, true, "", map[string]any{"redirect": expected + "#" + q.Encode()})
	}
}

// fbookAuth handles messenger account linking; the user's id doubles as the
// authorization code appended to the platform redirect.
func fbookAuth(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		redirectURI := c.FormValue("redirect_uri")
		u := d.currentUser(c)
		if u == nil {
			if identity, err := d.Auth.ValidateIDToken(c.FormValue("id_token")); err == nil {
				u, _ = d.Store.GetUserByEmail(ctx, identity.Email)
			}
		}
		if u == nil {
			return respond(c, false, "User not found", map[string]any{"redirect": nil})
		}
		if redirectURI == "" {
			return respond(c, false, "No redirect URI?", map[string]any{"redirect": nil})
		}
		redirect := fmt.Sprintf("%s&authorization_code=%d", redirectURI, u.ID)
		return respond(c, true, "", map[string]any{"redirect": redirect})
	}
}

func logout(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := d.Sessions.Destroy(c.Request().Context(), c); err != nil {
			d.Log.Warnf("logout: %v", err)
		}
		return respond(c, true, "Signed out", nil)
	}
}
