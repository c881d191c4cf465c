package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"flow-api/domain"
)

// Request parameter coercion. Each getter returns nil when the field is
// absent or unparseable, which is what drives partial-update semantics:
// a nil pointer means "leave the stored value untouched".

func lookup(c echo.Context, name string) (string, bool) {
	if qp := c.QueryParams(); qp.Has(name) {
		return qp.Get(name), true
	}
	form, err := c.FormParams()
	if err != nil {
		return "", false
	}
	if form.Has(name) {
		return form.Get(name), true
	}
	return "", false
}

func getString(c echo.Context, name string) *string {
	v, ok := lookup(c, name)
	if !ok {
		return nil
	}
	return &v
}

func getInt(c echo.Context, name string) *int {
	v, ok := lookup(c, name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

func getInt64(c echo.Context, name string) *int64 {
	v, ok := lookup(c, name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// getRange mirrors the integer-with-default accessor used for counters and
// flags: absent or malformed values fall back.
func getRange(c echo.Context, name string, fallback int) int {
	if n := getInt(c, name); n != nil {
		return *n
	}
	return fallback
}

var textTrue = map[string]bool{"true": true, "t": true, "on": true, "yes": true}
var textFalse = map[string]bool{"false": true, "f": true, "off": true, "no": true}

// getBool coerces "1"/"0"; with textBooleans set, textual truthy and falsy
// tokens from toggle forms are accepted as well.
func getBool(c echo.Context, name string, textBooleans bool) *bool {
	v, ok := lookup(c, name)
	if !ok {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(v))
	var b bool
	switch {
	case s == "1":
		b = true
	case s == "0":
		b = false
	case textBooleans && textTrue[s]:
		b = true
	case textBooleans && textFalse[s]:
		b = false
	default:
		return nil
	}
	return &b
}

// getDate returns a validated ISO date string.
func getDate(c echo.Context, name string) *string {
	v, ok := lookup(c, name)
	if !ok {
		return nil
	}
	s := strings.TrimSpace(v)
	if _, ok := domain.ParseISODate(s); !ok {
		return nil
	}
	return &s
}

// getJSON returns the raw field when it parses as JSON.
func getJSON(c echo.Context, name string) json.RawMessage {
	v, ok := lookup(c, name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	var parsed any
	if err := sonic.Unmarshal([]byte(v), &parsed); err != nil {
		return nil
	}
	return json.RawMessage(v)
}

// getList splits a comma-separated field. A present-but-empty field yields
// an empty, non-nil slice so callers can distinguish "clear" from "absent".
func getList(c echo.Context, name string) []string {
	v, ok := lookup(c, name)
	if !ok {
		return nil
	}
	items := []string{}
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// pagingParams extracts page/max paging fields and derives the offset.
func pagingParams(c echo.Context) (limit, offset int) {
	page := getRange(c, "page", 0)
	limit = getRange(c, "max", 30)
	if limit <= 0 || limit > 500 {
		limit = 30
	}
	if page < 0 {
		page = 0
	}
	return limit, page * limit
}
