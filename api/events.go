package api

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

func listEvents(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		limit, offset := pagingParams(c)
		events, err := d.Store.FetchEvents(c.Request().Context(), u.ID, limit, offset)
		if err != nil {
			d.Log.Errorf("fetch events: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"events": events})
	}
}

// updateEvent creates or updates a single event. A new event requires a
// date_start; date_end defaults to date_start.
func updateEvent(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		var event *domain.Event
		if id := getInt64(c, "id"); id != nil && *id != 0 {
			var err error
			event, err = d.Store.GetEvent(ctx, u.ID, *id)
			if err != nil {
				d.Log.Errorf("get event: %v", err)
				return respond(c, false, "", nil)
			}
		}
		dateStart := getDate(c, "date_start")
		if event == nil {
			if dateStart == nil {
				return respond(c, false, "Couldn't create event", map[string]any{"event": nil})
			}
			event = domain.NewEvent(*dateStart)
		}
		event.Update(domain.EventUpdate{
			Title:     getString(c, "title"),
			Color:     getString(c, "color"),
			DateStart: dateStart,
			DateEnd:   getDate(c, "date_end"),
		})
		if err := d.Store.PutEvent(ctx, u.ID, event); err != nil {
			d.Log.Errorf("put event: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"event": event})
	}
}

type batchEventInput struct {
	Title     string `json:"title"`
	Color     string `json:"color"`
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`
}

// batchCreateEvents inserts a JSON array of events best effort: malformed
// items are skipped, a partially failed batch is not rolled back, and the
// response reports created and failed counts.
func batchCreateEvents(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		raw, ok := lookup(c, "events")
		if !ok {
			return respond(c, false, "events required", nil)
		}
		var inputs []batchEventInput
		if err := sonic.Unmarshal([]byte(raw), &inputs); err != nil {
			return respond(c, false, "invalid events payload", nil)
		}
		events := []*domain.Event{}
		malformed := 0
		for _, in := range inputs {
			if _, ok := domain.ParseISODate(in.DateStart); !ok {
				malformed++
				continue
			}
			event := domain.NewEvent(in.DateStart)
			event.Title = in.Title
			event.Color = in.Color
			if _, ok := domain.ParseISODate(in.DateEnd); ok {
				event.DateEnd = in.DateEnd
			}
			if event.DateEnd < event.DateStart {
				event.DateEnd = event.DateStart
			}
			events = append(events, event)
		}
		created, failed, err := d.Store.PutEvents(ctx, u.ID, events)
		if err != nil {
			d.Log.Errorf("batch events: %v", err)
		}
		failed += malformed
		return respond(c, created > 0, fmt.Sprintf("Putting %d", created), map[string]any{
			"created": created,
			"failed":  failed,
		})
	}
}
