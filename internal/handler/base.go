package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/pkg/auth"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

const (
	ContextUserID = "userID"
	ContextClaims = "claims"

	// HeaderTimezone carries the viewer's IANA zone.
	HeaderTimezone = "X-Timezone"
)

// Fail records err for the error middleware and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// BindJSON binds the request body, turning binding failures into a 400.
// Failed binding tags are reported per field.
func BindJSON(c *gin.Context, v interface{}) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := model.BindingErrors(verrs)
		Fail(c, apperrors.Validation(fields[0].Message, fields))
		return false
	}
	Fail(c, apperrors.BadRequest(err.Error(), err))
	return false
}

// ParamID parses a uuid path parameter.
func ParamID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Fail(c, apperrors.BadRequest(fmt.Sprintf("invalid %s ID", strings.ToLower(resource)), err))
		return uuid.Nil, false
	}
	return id, true
}

// UserID returns the authenticated account id set by the auth middleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		Fail(c, apperrors.UnauthorizedMessage("authentication required", nil))
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		Fail(c, apperrors.UnauthorizedMessage("authentication required", nil))
		return uuid.Nil, false
	}
	return id, true
}

// Claims returns the access token claims, if the request is authenticated.
func Claims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// ViewerZone reads the viewer's zone header. Blank means the server default.
func ViewerZone(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderTimezone))
}
