package api

import (
	"github.com/labstack/echo/v4"

	"flow-api/domain"
	"flow-api/services"
)

func listReadables(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		readables, err := d.Store.UnreadReadables(c.Request().Context(), u.ID)
		if err != nil {
			d.Log.Errorf("list readables: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"readables": readables})
	}
}

// updateReadable applies a partial update and mirrors read and favorite
// transitions back to Pocket. Mirroring is best effort; a failed remote call
// never fails the local update.
func updateReadable(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		id := getString(c, "id")
		if id == nil {
			return respond(c, false, "id required", nil)
		}
		readable, err := d.Store.GetReadable(ctx, u.ID, *id)
		if err != nil {
			d.Log.Errorf("get readable: %v", err)
			return respond(c, false, "", nil)
		}
		if readable == nil {
			return respond(c, false, "Readable not found", map[string]any{"readable": nil})
		}
		read := getBool(c, "read", false)
		favorite := getBool(c, "favorite", false)
		wasRead := readable.Read
		wasFavorite := readable.Favorite
		readable.Update(domain.ReadableUpdate{Read: read, Favorite: favorite})
		if err := d.Store.PutReadable(ctx, u.ID, readable); err != nil {
			d.Log.Errorf("put readable: %v", err)
			return respond(c, false, "", nil)
		}
		if readable.Source == domain.SourcePocket && d.Pocket != nil {
			token := u.IntegrationProp("pocket_access_token", "")
			if token != "" {
				if readable.Read && !wasRead {
					if err := d.Pocket.UpdateArticle(ctx, token, readable.SourceID, services.PocketActionArchive); err != nil {
						d.Log.Warnf("pocket archive %s: %v", readable.SourceID, err)
					}
				}
				if readable.Favorite && !wasFavorite {
					if err := d.Pocket.UpdateArticle(ctx, token, readable.SourceID, services.PocketActionFavorite); err != nil {
						d.Log.Warnf("pocket favorite %s: %v", readable.SourceID, err)
					}
				}
			}
		}
		return respond(c, true, "", map[string]any{"readable": readable})
	}
}

func deleteReadable(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		id := getString(c, "id")
		if id == nil {
			return respond(c, false, "id required", nil)
		}
		readable, err := d.Store.GetReadable(ctx, u.ID, *id)
		if err != nil {
			d.Log.Errorf("get readable: %v", err)
			return respond(c, false, "", nil)
		}
		if err := d.Store.DeleteReadable(ctx, u.ID, *id); err != nil {
			d.Log.Errorf("delete readable: %v", err)
			return respond(c, false, "", nil)
		}
		if readable != nil && readable.Source == domain.SourcePocket && d.Pocket != nil {
			token := u.IntegrationProp("pocket_access_token", "")
			if token != "" {
				if err := d.Pocket.UpdateArticle(ctx, token, readable.SourceID, services.PocketActionDelete); err != nil {
					d.Log.Warnf("pocket delete %s: %v", readable.SourceID, err)
				}
			}
		}
		return respond(c, true, "", nil)
	}
}
