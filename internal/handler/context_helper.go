package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/middleware"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/middleware/requestid"
)

// actorFromContext builds the caller identity recorded on timeline entries and audit rows.
func actorFromContext(c *gin.Context) models.Actor {
	actor := middleware.Claims(c).Actor()
	actor.IP = c.ClientIP()
	actor.UserAgent = c.GetHeader("User-Agent")
	actor.RequestID = requestid.Value(c)
	return actor
}

// bindJSON decodes the body; an empty body is treated as an empty object.
func bindJSON(c *gin.Context, dest interface{}, message string) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
	}
	return nil
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return v
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
