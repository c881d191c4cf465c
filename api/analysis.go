package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

const analysisTaskLimit = 100

// analysis assembles the cross-entity payload for a date range. The with_*
// flags gate the optional joins so clients only pay for what they render.
func analysis(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newAnalysisRequestMetrics(ctx, d.Log)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		withHabits := getRange(c, "with_habits", 1) == 1
		withProductivity := getRange(c, "with_productivity", 1) == 1
		withGoals := getRange(c, "with_goals", 1) == 1
		withTasks := getRange(c, "with_tasks", 1) == 1

		dateStart := getDate(c, "date_start")
		dateEnd := getDate(c, "date_end")
		if dateStart == nil || dateEnd == nil {
			metrics.SetErrorStage("params")
			return respond(c, false, "date_start and date_end required", nil)
		}
		dates := domain.DaysInRange(*dateStart, *dateEnd)
		metrics.SetDaysRequested(len(dates))

		journals := []*domain.MiniJournal{}
		if len(dates) > 0 {
			fetchStart := time.Now()
			slots, err := d.Store.GetJournals(ctx, u.ID, dates)
			metrics.ObserveJournals(time.Since(fetchStart))
			if err != nil {
				metrics.SetErrorStage("journals")
				d.Log.Errorf("analysis journals: %v", err)
				return respond(c, false, "", nil)
			}
			for _, j := range slots {
				if j != nil {
					journals = append(journals, j)
				}
			}
		}
		metrics.SetJournalsReturned(len(journals))

		habits := []*domain.Habit{}
		habitdays := map[string]*domain.HabitDay{}
		if withHabits {
			fetchStart := time.Now()
			var err error
			habits, err = d.Store.ActiveHabits(ctx, u.ID)
			if err != nil {
				metrics.SetErrorStage("habits")
				d.Log.Errorf("analysis habits: %v", err)
				return respond(c, false, "", nil)
			}
			habitIDs := make([]int64, 0, len(habits))
			for _, h := range habits {
				habitIDs = append(habitIDs, h.ID)
			}
			habitdays, err = d.Store.HabitDaysInRange(ctx, u.ID, habitIDs, *dateStart, *dateEnd)
			metrics.ObserveHabits(time.Since(fetchStart))
			if err != nil {
				metrics.SetErrorStage("habitdays")
				d.Log.Errorf("analysis habitdays: %v", err)
				return respond(c, false, "", nil)
			}
		}
		metrics.SetHabitDaysReturned(len(habitdays))

		goals := []*domain.Goal{}
		if withGoals {
			fetchStart := time.Now()
			var err error
			goals, err = d.Store.YearGoals(ctx, u.ID, time.Now().In(u.Location()).Year())
			metrics.ObserveGoals(time.Since(fetchStart))
			if err != nil {
				metrics.SetErrorStage("goals")
				d.Log.Errorf("analysis goals: %v", err)
				return respond(c, false, "", nil)
			}
		}

		tasks := []*domain.Task{}
		if withTasks {
			start, _ := domain.ParseISODate(*dateStart)
			end, _ := domain.ParseISODate(*dateEnd)
			fetchStart := time.Now()
			var err error
			tasks, err = d.Store.TasksDueInRange(ctx, u.ID, start, end.AddDate(0, 0, 1), analysisTaskLimit)
			metrics.ObserveTasks(time.Since(fetchStart))
			if err != nil {
				metrics.SetErrorStage("tasks")
				d.Log.Errorf("analysis tasks: %v", err)
				return respond(c, false, "", nil)
			}
		}

		productivity := []*domain.Productivity{}
		if withProductivity {
			var err error
			productivity, err = d.Store.ProductivityRange(ctx, u.ID, *dateStart, *dateEnd)
			if err != nil {
				metrics.SetErrorStage("productivity")
				d.Log.Errorf("analysis productivity: %v", err)
				return respond(c, false, "", nil)
			}
		}

		return respond(c, true, "", map[string]any{
			"dates":        dates,
			"journals":     journals,
			"habits":       habits,
			"habitdays":    habitdays,
			"goals":        goals,
			"tasks":        tasks,
			"productivity": productivity,
		})
	}
}
