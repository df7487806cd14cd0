package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/launchcopy-backend/internal/platform/apierr"
)

type APIError struct {
  Message string `json:"message"`
  Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
  Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
  msg := "unknown error"
  if err != nil {
    msg = err.Error()
  }
  c.JSON(status, ErrorEnvelope{
    Error: APIError{
      Message: msg,
      Code:    code,
    },
  })
}

// RespondAPIError maps a typed error onto its HTTP status. Untyped errors
// come back as 500 internal_error with the message suppressed.
func RespondAPIError(c *gin.Context, err error) {
  ae := apierr.From(err)
  if ae.Code == apierr.CodeInternal {
    RespondError(c, ae.Status, ae.Code, nil)
    return
  }
  RespondError(c, ae.Status, ae.Code, ae.Err)
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, payload)
}
