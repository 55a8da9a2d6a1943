package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ErrorCode is the stable machine-readable code sent to clients.
type ErrorCode string

const (
	CodeRoomNotFound    ErrorCode = "ROOM_NOT_FOUND"
	CodeGameNotFound    ErrorCode = "GAME_NOT_FOUND"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeRoomFull        ErrorCode = "ROOM_FULL"
	CodeRoomNotWaiting  ErrorCode = "ROOM_NOT_WAITING"
	CodeRoomCompleted   ErrorCode = "ROOM_COMPLETED"
	CodeAlreadyInRoom   ErrorCode = "ALREADY_IN_ROOM"
	CodeNotRoomMember   ErrorCode = "NOT_ROOM_MEMBER"
	CodeNotRoomHost     ErrorCode = "NOT_ROOM_HOST"
	CodeValidation      ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeInvalidMessage  ErrorCode = "INVALID_MESSAGE"
	internalErrorText             = "Something went wrong. Please try again."
	unauthorizedErrText           = "Authentication required"
)

// ErrorBody is the JSON shape of every REST error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// classify maps an error to its HTTP status, code and client message.
// Anything that is not a lifecycle error is internal.
func classify(err error) (int, ErrorCode, string) {
	var re *rooms.Error
	if !errors.As(err, &re) {
		return http.StatusInternalServerError, CodeInternal, internalErrorText
	}
	switch re.Kind {
	case rooms.KindNotFound:
		return http.StatusNotFound, CodeRoomNotFound, "Room not found"
	case rooms.KindGameNotFound:
		return http.StatusNotFound, CodeGameNotFound, "Game not found"
	case rooms.KindNotificationNotFound:
		return http.StatusNotFound, CodeNotFound, "Notification not found"
	case rooms.KindFull:
		return http.StatusUnprocessableEntity, CodeRoomFull, "Room is full"
	case rooms.KindNotWaiting:
		return http.StatusUnprocessableEntity, CodeRoomNotWaiting, "Room is not accepting players"
	case rooms.KindCompleted:
		return http.StatusUnprocessableEntity, CodeRoomCompleted, "Room is complete; members can no longer leave"
	case rooms.KindNotMember:
		return http.StatusUnprocessableEntity, CodeNotRoomMember, "You are not a member of this room"
	case rooms.KindAlreadyMember:
		return http.StatusConflict, CodeAlreadyInRoom, "You are already in this room"
	case rooms.KindNotHost:
		return http.StatusForbidden, CodeNotRoomHost, "Only the host can do that"
	case rooms.KindValidation:
		return http.StatusBadRequest, CodeValidation, "Invalid request"
	default:
		return http.StatusInternalServerError, CodeInternal, internalErrorText
	}
}

// fail writes the error response for err and logs internal failures.
func (s *Server) fail(c *gin.Context, err error) {
	status, code, message := classify(err)
	_ = c.Error(err)

	body := ErrorBody{Error: ErrorDetail{Code: code, Message: message}}
	var re *rooms.Error
	if errors.As(err, &re) && re.Kind == rooms.KindValidation && re.Field != "" {
		reason := ""
		if re.Err != nil {
			reason = re.Err.Error()
		}
		body.Error.Details = map[string]string{re.Field: reason}
	}

	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).WithError(err).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{
		Code:    CodeUnauthorized,
		Message: unauthorizedErrText,
	}})
}

// bindFailed reports a request body or query that failed binding, with one
// detail entry per invalid field when the validator can name them.
func (s *Server) bindFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	body := ErrorBody{Error: ErrorDetail{Code: CodeValidation, Message: "Invalid request"}}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Error.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Error.Details[fe.Field()] = describe(fe)
		}
	} else {
		body.Error.Message = "Malformed request body"
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
