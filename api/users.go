package api

import (
	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

const listUsersLimit = 50

func updateSelf(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		u.Update(domain.UserUpdate{
			Timezone: getString(c, "timezone"),
			Birthday: getDate(c, "birthday"),
			Settings: getJSON(c, "settings"),
		})
		if err := d.Store.PutUser(c.Request().Context(), u); err != nil {
			d.Log.Errorf("put user: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"user": u.Public()})
	}
}

func listUsers(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		limit, offset := pagingParams(c)
		if limit <= 0 || limit > listUsersLimit {
			limit = listUsersLimit
		}
		users, err := d.Store.ListUsers(c.Request().Context(), limit, offset)
		if err != nil {
			d.Log.Errorf("list users: %v", err)
			return respond(c, false, "", nil)
		}
		public := make([]any, 0, len(users))
		for _, usr := range users {
			public = append(public, usr.Public())
		}
		return respond(c, true, "", map[string]any{"users": public})
	}
}
