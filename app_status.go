package nebula

type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusCreated             StatusCode = 201
	StatusNoContent           StatusCode = 204
	StatusMovedPermanently    StatusCode = 301
	StatusFound               StatusCode = 302
	StatusNotModified         StatusCode = 304
	StatusBadRequest          StatusCode = 400
	StatusUnauthorized        StatusCode = 401
	StatusForbidden           StatusCode = 403
	StatusNotFound            StatusCode = 404
	StatusMethodNotAllowed    StatusCode = 405
	StatusConflict            StatusCode = 409
	StatusPayloadTooLarge     StatusCode = 413
	StatusTeapot              StatusCode = 418
	StatusUnprocessable       StatusCode = 422
	StatusTooManyRequests     StatusCode = 429
	StatusInternalServerError StatusCode = 500
	StatusNotImplemented      StatusCode = 501
	StatusBadGateway          StatusCode = 502
	StatusServiceUnavailable  StatusCode = 503
)

var StatusCodeDescriptions = map[StatusCode]string{
	StatusOK:                  "OK",
	StatusCreated:             "Created",
	StatusNoContent:           "No Content",
	StatusMovedPermanently:    "Moved Permanently",
	StatusFound:               "Found",
	StatusNotModified:         "Not Modified",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusConflict:            "Conflict",
	StatusPayloadTooLarge:     "Payload Too Large",
	StatusTeapot:              "I'm a teapot",
	StatusUnprocessable:       "Unprocessable Entity",
	StatusTooManyRequests:     "Too Many Requests",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
	StatusBadGateway:          "Bad Gateway",
	StatusServiceUnavailable:  "Service Unavailable",
}

// Valid reports whether the code can be put on a status line.
func (s StatusCode) Valid() bool {
	return s >= 100 && s <= 599
}

// IsError reports whether the code is a client or server error (400-599).
func (s StatusCode) IsError() bool {
	return s >= 400 && s <= 599
}

// Description returns the reason phrase for the status line, falling back to a
// class-level phrase for codes without an entry.
func (s StatusCode) Description() string {
	if desc, ok := StatusCodeDescriptions[s]; ok {
		return desc
	}
	switch {
	case s >= 500:
		return "Server Error"
	case s >= 400:
		return "Client Error"
	case s >= 300:
		return "Redirection"
	case s >= 200:
		return "Success"
	default:
		return "Informational"
	}
}
