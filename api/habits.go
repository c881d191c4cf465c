package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

func listHabits(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		habits, err := d.Store.AllHabits(c.Request().Context(), u.ID)
		if err != nil {
			d.Log.Errorf("all habits: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"habits": habits})
	}
}

// recentHabitDays returns the last N days of all active habits.
func recentHabitDays(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		days := getRange(c, "days", 5)
		if days < 1 {
			days = 5
		}
		today := time.Now().In(u.Location())
		start := domain.ISODateStr(today.AddDate(0, 0, -days))
		end := domain.ISODateStr(today)
		return habitDaysResponse(d, c, u, start, end)
	}
}

// habitDayRange returns habit days between start_date and end_date
// inclusive. Every (habit, day) slot is present in the response; days with
// no stored record are explicit nulls so the client can align by index.
func habitDayRange(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		start := getDate(c, "start_date")
		if start == nil {
			return respond(c, false, "start_date required", nil)
		}
		end := *start
		if e := getDate(c, "end_date"); e != nil {
			end = *e
		}
		return habitDaysResponse(d, c, u, *start, end)
	}
}

func habitDaysResponse(d Deps, c echo.Context, u *domain.User, startISO, endISO string) error {
	ctx := c.Request().Context()
	habits, err := d.Store.ActiveHabits(ctx, u.ID)
	if err != nil {
		d.Log.Errorf("active habits: %v", err)
		return respond(c, false, "", nil)
	}
	ids := make([]int64, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	found, err := d.Store.HabitDaysInRange(ctx, u.ID, ids, startISO, endISO)
	if err != nil {
		d.Log.Errorf("habit day range: %v", err)
		return respond(c, false, "", nil)
	}
	habitdays := map[string]any{}
	for _, h := range habits {
		for _, day := range domain.DaysInRange(startISO, endISO) {
			key := domain.HabitDayID(h.ID, day)
			if hd, ok := found[key]; ok {
				habitdays[key] = hd
			} else {
				habitdays[key] = nil
			}
		}
	}
	return respond(c, true, "", map[string]any{
		"habits":    habits,
		"habitdays": habitdays,
	})
}

// toggleHabitDay flips done/not-done for one (habit, day), creating the
// record lazily on first interaction.
func toggleHabitDay(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		habitID := getInt64(c, "habit_id")
		day := getDate(c, "date")
		if habitID == nil || day == nil {
			return respond(c, false, "", map[string]any{"habitday": nil})
		}
		habit, err := d.Store.GetHabit(ctx, u.ID, *habitID)
		if err != nil {
			d.Log.Errorf("get habit: %v", err)
			return respond(c, false, "", nil)
		}
		if habit == nil {
			return respond(c, false, "", map[string]any{"habitday": nil})
		}
		hd, err := d.Store.GetHabitDay(ctx, u.ID, domain.HabitDayID(*habitID, *day))
		if err != nil {
			d.Log.Errorf("get habit day: %v", err)
			return respond(c, false, "", nil)
		}
		if hd == nil {
			hd = domain.NewHabitDay(*habitID, *day)
		}
		message := ""
		if hd.Toggle() {
			message = domain.HabitDoneReply()
		}
		if err := d.Store.PutHabitDay(ctx, u.ID, hd); err != nil {
			d.Log.Errorf("put habit day: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, message, map[string]any{"habitday": hd})
	}
}

// commitHabitDay marks a (habit, day) committed. Committing is one-way and
// idempotent, and always earns a celebratory reply.
func commitHabitDay(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		habitID := getInt64(c, "habit_id")
		day := getDate(c, "date")
		if habitID == nil || day == nil {
			return respond(c, false, "", map[string]any{"habitday": nil})
		}
		habit, err := d.Store.GetHabit(ctx, u.ID, *habitID)
		if err != nil {
			d.Log.Errorf("get habit: %v", err)
			return respond(c, false, "", nil)
		}
		if habit == nil {
			return respond(c, false, "", map[string]any{"habitday": nil})
		}
		hd, err := d.Store.GetHabitDay(ctx, u.ID, domain.HabitDayID(*habitID, *day))
		if err != nil {
			d.Log.Errorf("get habit day: %v", err)
			return respond(c, false, "", nil)
		}
		if hd == nil {
			hd = domain.NewHabitDay(*habitID, *day)
		}
		hd.Commit()
		if err := d.Store.PutHabitDay(ctx, u.ID, hd); err != nil {
			d.Log.Errorf("put habit day: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, domain.HabitCommitReply(), map[string]any{"habitday": hd})
	}
}

// updateHabit creates or updates a habit.
func updateHabit(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		var habit *domain.Habit
		if id := getInt64(c, "id"); id != nil && *id != 0 {
			var err error
			habit, err = d.Store.GetHabit(ctx, u.ID, *id)
			if err != nil {
				d.Log.Errorf("get habit: %v", err)
				return respond(c, false, "", nil)
			}
		} else {
			habit = domain.NewHabit()
		}
		if habit == nil {
			return respond(c, false, "", map[string]any{"habit": nil})
		}
		habit.Update(domain.HabitUpdate{
			Name:         getString(c, "name"),
			Color:        getString(c, "color"),
			Icon:         getString(c, "icon"),
			TargetWeekly: getInt(c, "tgt_weekly"),
			Archived:     getBool(c, "archived", true),
		})
		if err := d.Store.PutHabit(ctx, u.ID, habit); err != nil {
			d.Log.Errorf("put habit: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"habit": habit})
	}
}
