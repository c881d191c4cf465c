package api

import (
	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

func listProjects(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		projects, err := d.Store.FetchProjects(c.Request().Context(), u.ID)
		if err != nil {
			d.Log.Errorf("fetch projects: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"projects": projects})
	}
}

func activeProjects(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		projects, err := d.Store.ActiveProjects(c.Request().Context(), u.ID)
		if err != nil {
			d.Log.Errorf("active projects: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"projects": projects})
	}
}

// updateProject creates or updates a project. url1/url2 fields collapse
// into the ordered urls list when either is supplied.
func updateProject(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		var prj *domain.Project
		if id := getInt64(c, "id"); id != nil && *id != 0 {
			var err error
			prj, err = d.Store.GetProject(ctx, u.ID, *id)
			if err != nil {
				d.Log.Errorf("get project: %v", err)
				return respond(c, false, "", nil)
			}
		} else {
			prj = domain.NewProject()
		}
		if prj == nil {
			return respond(c, false, "", map[string]any{"project": nil})
		}

		update := domain.ProjectUpdate{
			Title:    getString(c, "title"),
			Subhead:  getString(c, "subhead"),
			Starred:  getBool(c, "starred", true),
			Archived: getBool(c, "archived", true),
			Progress: getInt(c, "progress"),
		}
		url1 := getString(c, "url1")
		url2 := getString(c, "url2")
		if url1 != nil || url2 != nil {
			urls := []string{}
			if url1 != nil {
				urls = append(urls, *url1)
			}
			if url2 != nil {
				urls = append(urls, *url2)
			}
			update.URLs = urls
		}
		prj.Update(update)
		if err := d.Store.PutProject(ctx, u.ID, prj); err != nil {
			d.Log.Errorf("put project: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"project": prj})
	}
}
