package httpclient

import "net/http"

const APP_VERSION = "1.0"

// DefaultHeaders returns a map of default headers that should be applied to all HTTP requests.
// X-Requested-With marks requests as originating from the app, which the
// backend uses as its baseline CSRF check.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":       "Lunaalba Client/V" + APP_VERSION,
		"X-Requested-With": "XMLHttpRequest",
	}
}

// ApplyDefaultHeaders applies the default headers to the given HTTP request.
// If a header already exists, it will not be overwritten.
func ApplyDefaultHeaders(req *http.Request) {
	headers := DefaultHeaders()
	for key, value := range headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}
}
