package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/middleware"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return middleware.RequestMeta(c)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

// queryList accepts both repeated keys and comma separated values.
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

func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, appErrors.Validation(key, "must be an RFC3339 timestamp or YYYY-MM-DD date")
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, appErrors.Validation(key, "must be a number")
	}
	return &v, nil
}

func respondPage[T any](c *gin.Context, page pagination.Page[T], hit bool) {
	middleware.SetCacheHit(c, hit)
	meta := page.Meta
	response.JSON(c, http.StatusOK, page.Items, &meta, middleware.ExtractMeta(c))
}
