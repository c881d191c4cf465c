package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

const recentTaskLimit = 20

func listTasks(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		tasks, err := d.Store.RecentTasks(c.Request().Context(), u.ID, recentTaskLimit)
		if err != nil {
			d.Log.Errorf("recent tasks: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"tasks": tasks})
	}
}

// updateTask creates or updates a task. New tasks get the interactive
// due-date default computed in the user's timezone.
func updateTask(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		var task *domain.Task
		if id := getInt64(c, "id"); id != nil && *id != 0 {
			var err error
			task, err = d.Store.GetTask(ctx, u.ID, *id)
			if err != nil {
				d.Log.Errorf("get task: %v", err)
				return respond(c, false, "", nil)
			}
		} else {
			localNow := time.Now().In(u.Location())
			task = domain.NewTask("", domain.DefaultDue(localNow))
		}
		if task == nil {
			return respond(c, false, "", map[string]any{"task": nil})
		}

		message := task.Update(domain.TaskUpdate{
			Title:    getString(c, "title"),
			Status:   getInt(c, "status"),
			Archived: getBool(c, "archived", false),
			WIP:      getBool(c, "wip", false),
		})
		if err := d.Store.PutTask(ctx, u.ID, task); err != nil {
			d.Log.Errorf("put task: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, message, map[string]any{"task": task})
	}
}
