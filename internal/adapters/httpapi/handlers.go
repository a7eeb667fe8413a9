package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal server error"

// urlResponse is the body of a successful /predict_url call
type urlResponse struct {
	URL        string `json:"url"`
	IsPhishing bool   `json:"is_phishing"`
	Message    string `json:"message"`
}

// emailResponse is the body of a successful /predict_email call
type emailResponse struct {
	IsPhishing   bool    `json:"is_phishing"`
	IsSuspicious bool    `json:"is_suspicious"`
	Message      string  `json:"message"`
	Confidence   float64 `json:"confidence"`
}

func (s *Server) handlePredictURL(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		s.renderError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	raw, present := body["url"]
	if !present || raw == nil {
		s.renderError(c, http.StatusBadRequest, "No URL provided")
		return
	}
	url, ok := raw.(string)
	if !ok {
		s.renderError(c, http.StatusBadRequest, "URL must be a string")
		return
	}
	if url == "" {
		s.renderError(c, http.StatusBadRequest, "No URL provided")
		return
	}

	start := time.Now()
	result, err := s.detector.CheckURL(c.Request.Context(), url)
	if err != nil {
		s.failCheck(c, "url", err)
		return
	}
	if s.recorder != nil {
		s.recorder.ObserveURL(result, time.Since(start))
	}

	message := "Safe website"
	if result.IsPhishing {
		message = "Phishing detected"
	}

	c.JSON(http.StatusOK, urlResponse{
		URL:        result.URL,
		IsPhishing: result.IsPhishing,
		Message:    message,
	})
}

func (s *Server) handlePredictEmail(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		s.renderError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	raw := body["text"]
	if isFalsy(raw) {
		s.renderError(c, http.StatusBadRequest, "No text provided")
		return
	}

	start := time.Now()
	var result *core.EmailAnalysisResult
	if text, ok := raw.(string); ok {
		var err error
		result, err = s.detector.CheckEmail(c.Request.Context(), text)
		if err != nil {
			s.failCheck(c, "email", err)
			return
		}
	} else {
		// present but not text: nothing to classify
		result = core.ShortCircuitResult()
	}
	if s.recorder != nil {
		s.recorder.ObserveEmail(result, time.Since(start))
	}

	c.JSON(http.StatusOK, emailResponse{
		IsPhishing:   result.Label == core.LabelPhishing,
		IsSuspicious: result.Label == core.LabelSuspicious,
		Message:      string(result.Label),
		Confidence:   result.Confidence,
	})
}

// failCheck maps a detector error to a response. Causes never reach the client.
func (s *Server) failCheck(c *gin.Context, operation string, err error) {
	if s.recorder != nil {
		s.recorder.ObserveError(operation, err)
	}

	if errors.Is(err, core.ErrValidation) {
		s.renderError(c, http.StatusBadRequest, validationMessage(operation))
		return
	}

	s.logger.Error("Check failed",
		zap.String("operation", operation),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))
	s.renderError(c, http.StatusInternalServerError, internalErrorMessage)
}

func validationMessage(operation string) string {
	if operation == "url" {
		return "No URL provided"
	}
	return "No text provided"
}

// isFalsy reports whether a decoded JSON value counts as absent
func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}
