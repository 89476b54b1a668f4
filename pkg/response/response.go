package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/models"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

// Flash categories understood by the page layer.
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Flash is a one-shot message shown to the user on the next page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// Forbidden answers every authentication and authorization failure with the same body.
func Forbidden(c *gin.Context) {
	noStore(c)
	c.AbortWithStatusJSON(http.StatusForbidden, Envelope{Error: appErrors.ErrForbidden})
}

// Redirect sends the user to location with a flash, as a 303 so the browser follows with GET.
func Redirect(c *gin.Context, location string, flash *Flash) {
	noStore(c)
	c.Header("Location", location)
	meta := map[string]interface{}{"location": location}
	if flash != nil {
		meta["flash"] = flash
	}
	c.JSON(http.StatusSeeOther, Envelope{Meta: meta})
}

// Success redirects to location flashing a success message.
func Success(c *gin.Context, location, message string) {
	Redirect(c, location, &Flash{Category: FlashSuccess, Message: message})
}

// Warning re-renders the submitted form: the error goes out as a warning flash and
// the input is echoed back so nothing the user typed is lost.
func Warning(c *gin.Context, err error, input interface{}) {
	appErr := appErrors.FromError(err)
	noStore(c)
	status := appErr.Status
	if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, Envelope{
		Data:  input,
		Error: appErr,
		Meta:  map[string]interface{}{"flash": Flash{Category: FlashWarning, Message: appErr.Message}},
	})
}

// Fail dispatches err: validation-family errors become a warning, the rest a plain error.
func Fail(c *gin.Context, err error, input interface{}) {
	if appErrors.IsValidationFamily(err) {
		Warning(c, err, input)
		return
	}
	Error(c, err)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
