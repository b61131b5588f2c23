package validation

import (
	"fmt"
	"net/http"
)

// ValidateAndParseMultipart caps the request body at maxSize and parses the
// multipart form. Exceeding the cap resets the connection once the limit is hit.
func ValidateAndParseMultipart(r *http.Request, w http.ResponseWriter, maxSize int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return fmt.Errorf("%w: failed to parse multipart form", ErrPayloadTooLarge)
	}
	return nil
}

// CalculateMaxRequestSize returns the largest allowed upload plus a buffer
// for form fields and multipart overhead.
func CalculateMaxRequestSize(bufferSize int64) int64 {
	var max int64
	for _, rule := range rules {
		if rule.MaxSize > max {
			max = rule.MaxSize
		}
	}
	return max + bufferSize
}

// FormatSizeMB converts bytes to megabytes for user-friendly error messages.
func FormatSizeMB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}
