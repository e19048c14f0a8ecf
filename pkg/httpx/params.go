package httpx

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrBadQuery — параметр запроса не разобран.
var ErrBadQuery = errors.New("bad query parameter")

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseLimitOffset читает limit/offset для страниц журнала.
// Отсутствующий параметр — дефолт; limit вне [1, maxLimit] прижимается к границе;
// нечисловые значения и отрицательный offset — ErrBadQuery (ответ 400).
func ParseLimitOffset(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int, err error) {
	limit = ClampInt(defaultLimit, 1, maxLimit)
	if raw, ok := c.GetQuery("limit"); ok {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, 0, fmt.Errorf("%w: limit=%q", ErrBadQuery, raw)
		}
		limit = ClampInt(v, 1, maxLimit)
	}
	if raw, ok := c.GetQuery("offset"); ok {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil || v < 0 {
			return 0, 0, fmt.Errorf("%w: offset=%q", ErrBadQuery, raw)
		}
		offset = v
	}
	return limit, offset, nil
}
