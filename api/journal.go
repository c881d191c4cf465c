package api

import (
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

const recentJournalDays = 4

func journalToday(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		day := domain.JournalDay(time.Now().In(u.Location()))
		journal, err := d.Store.GetJournal(c.Request().Context(), u.ID, day)
		if err != nil {
			d.Log.Errorf("get journal: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{
			"date":    day,
			"journal": nullable(journal),
		})
	}
}

func listJournals(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		days := recentJournalDays
		if n := getInt(c, "days"); n != nil && *n > 0 {
			days = *n
		}
		today := domain.JournalDay(time.Now().In(u.Location()))
		end, _ := domain.ParseISODate(today)
		start := domain.ISODateStr(end.AddDate(0, 0, -(days - 1)))
		dates := domain.DaysInRange(start, today)
		journals, err := d.Store.GetJournals(c.Request().Context(), u.ID, dates)
		if err != nil {
			d.Log.Errorf("get journals: %v", err)
			return respond(c, false, "", nil)
		}
		slots := make([]any, len(journals))
		for i, j := range journals {
			slots[i] = nullable(j)
		}
		return respond(c, true, "", map[string]any{
			"dates":    dates,
			"journals": slots,
		})
	}
}

// submitJournal upserts the journal document for the resolved day. The data
// JSON is required. Tags are extracted from the tags_from_text value and a
// tasks JSON array spawns follow-up tasks due the morning after next.
func submitJournal(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		ctx := c.Request().Context()
		localNow := time.Now().In(u.Location())
		day := domain.JournalDay(localNow)
		if date := getDate(c, "date"); date != nil {
			day = *date
		}
		data := getJSON(c, "data")
		if data == nil {
			return respond(c, false, "data required", nil)
		}
		journal, err := d.Store.GetJournal(ctx, u.ID, day)
		if err != nil {
			d.Log.Errorf("get journal: %v", err)
			return respond(c, false, "", nil)
		}
		if journal == nil {
			journal = domain.NewJournal(day)
		}

		tagIDs := getList(c, "tags")
		var newTags []*domain.JournalTag
		if text := getString(c, "tags_from_text"); text != nil {
			seen := map[string]bool{}
			for _, id := range tagIDs {
				seen[id] = true
			}
			if tagIDs == nil {
				tagIDs = []string{}
			}
			for _, tag := range domain.TagsFromText(*text) {
				if seen[tag.ID] {
					continue
				}
				seen[tag.ID] = true
				tagIDs = append(tagIDs, tag.ID)
				newTags = append(newTags, tag)
			}
		}

		journal.Update(domain.JournalUpdate{
			Data: data,
			Lat:  getString(c, "lat"),
			Lon:  getString(c, "lon"),
			Tags: tagIDs,
		})
		if err := d.Store.PutJournal(ctx, u.ID, journal); err != nil {
			d.Log.Errorf("put journal: %v", err)
			return respond(c, false, "", nil)
		}
		for _, tag := range newTags {
			if err := d.Store.PutJournalTag(ctx, u.ID, tag); err != nil {
				d.Log.Warnf("put journal tag %s: %v", tag.ID, err)
			}
		}

		if raw, ok := lookup(c, "tasks"); ok && strings.TrimSpace(raw) != "" {
			var titles []string
			if err := sonic.Unmarshal([]byte(raw), &titles); err != nil {
				d.Log.Warnf("journal tasks payload: %v", err)
			} else if len(titles) > 0 {
				due := domain.JournalTaskDue(localNow)
				tasks := make([]*domain.Task, 0, len(titles))
				for _, title := range titles {
					if title == "" {
						continue
					}
					tasks = append(tasks, domain.NewTask(title, &due))
				}
				if len(tasks) > 0 {
					if _, err := d.Store.PutTasks(ctx, u.ID, tasks); err != nil {
						d.Log.Warnf("journal tasks: %v", err)
					}
				}
			}
		}
		return respond(c, true, "", map[string]any{"journal": journal})
	}
}

func listJournalTags(d Deps) userHandler {
	return func(c echo.Context, u *domain.User) error {
		tags, err := d.Store.AllJournalTags(c.Request().Context(), u.ID)
		if err != nil {
			d.Log.Errorf("journal tags: %v", err)
			return respond(c, false, "", nil)
		}
		return respond(c, true, "", map[string]any{"tags": tags})
	}
}
