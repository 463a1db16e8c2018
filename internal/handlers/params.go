package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/pkg/response"
)

// VersionRequest is the optional body of commands that only carry an
// optimistic concurrency check.
type VersionRequest struct {
	ExpectedVersion *int `json:"expected_version"`
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// engagementRef reads /engagements/:kind/:id.
func engagementRef(c *gin.Context) (engagement.Ref, bool) {
	ref, err := engagement.ParseRef(c.Param("kind"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return engagement.Ref{}, false
	}
	return ref, true
}
