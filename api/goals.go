package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

const recentGoalLimit = 10

func listGoals(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		goals, err := d.Store.RecentGoals(c.Request().Context(), u.ID, recentGoalLimit)
		if err != nil {
			d.Log.Errorf("recent goals: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"goals": goals})
	}
}

// currentGoals returns this year's annual goal and this month's goal.
func currentGoals(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		annualID, monthlyID := domain.CurrentGoalIDs(time.Now().In(u.Location()))
		annual, err := d.Store.GetGoal(ctx, u.ID, annualID)
		if err != nil {
			d.Log.Errorf("get annual goal: %v", err)
			return respond(c, false, "", nil)
		}
		monthly, err := d.Store.GetGoal(ctx, u.ID, monthlyID)
		if err != nil {
			d.Log.Errorf("get monthly goal: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{
			"annual":  nullable(annual),
			"monthly": nullable(monthly),
		})
	}
}

// updateGoal creates or updates the goal for a period. The first update of
// a period creates the record; text1..text4 collapse into the ordered text
// list.
func updateGoal(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		id := getString(c, "id")
		if id == nil || !domain.ValidGoalID(*id) {
			return respond(c, false, "Couldn't create goal", map[string]any{"goal": nil})
		}
		goal, err := d.Store.GetGoal(ctx, u.ID, *id)
		if err != nil {
			d.Log.Errorf("get goal: %v", err)
			return respond(c, false, "", nil)
		}
		if goal == nil {
			goal = domain.NewGoal(*id)
		}

		update := domain.GoalUpdate{Assessment: getInt(c, "assessment")}
		text := []string{}
		textSupplied := false
		for i := 1; i <= 4; i++ {
			if v := getString(c, fmt.Sprintf("text%d", i)); v != nil {
				textSupplied = true
				if *v != "" {
					text = append(text, *v)
				}
			}
		}
		if textSupplied {
			update.Text = text
		}
		goal.Update(update)
		if err := d.Store.PutGoal(ctx, u.ID, goal); err != nil {
			d.Log.Errorf("put goal: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"goal": goal})
	}
}

// nullable keeps typed nil pointers from serializing as JSON objects.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return v
}
