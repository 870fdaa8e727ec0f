// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrGeocoderUnavailable significa que no hay sugerencia basada en
// coordenadas. La resolución por texto sigue disponible.
var ErrGeocoderUnavailable = errors.New("geocoder unavailable")

// GeocodingError representa errores específicos de geocodificación.
type GeocodingError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType define tipos de errores de geocodificación.
type ErrorType int

const (
	// ErrorTypeUnknown error desconocido.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit límite de tasa alcanzado.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded cuota excedida.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout timeout de conexión.
	ErrorTypeTimeout
	// ErrorTypeNotFound ubicación no encontrada.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest request inválido.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError error de red.
	ErrorTypeNetworkError
)

var errorTypeNames = [...]string{
	ErrorTypeUnknown:        "unknown",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeQuotaExceeded:  "quota_exceeded",
	ErrorTypeTimeout:        "timeout",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeInvalidRequest: "invalid_request",
	ErrorTypeNetworkError:   "network_error",
}

func (t ErrorType) String() string {
	if int(t) < len(errorTypeNames) {
		return errorTypeNames[t]
	}

	return fmt.Sprintf("error_type(%d)", int(t))
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// IsRateLimitError verifica si el error es por límite de tasa.
func IsRateLimitError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeRateLimit
	}

	// Detectar por mensaje de error común
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError verifica si el error es por cuota excedida.
func IsQuotaExceededError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeQuotaExceeded
	}

	// Detectar por mensaje de error común (Google Maps)
	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsTimeoutError verifica si el error es por timeout.
func IsTimeoutError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeTimeout
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsNotFoundError verifica si el geocodificador no encontró nada en las
// coordenadas. No es una falla del colaborador.
func IsNotFoundError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeNotFound
	}

	return false
}

// ClassifyHTTPError clasifica un error HTTP en un tipo de error de geocodificación.
func ClassifyHTTPError(statusCode int, _ string) *GeocodingError {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: "límite de tasa alcanzado",
		}
	case http.StatusForbidden: // 403
		return &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "cuota excedida o acceso denegado",
		}
	case http.StatusBadRequest: // 400
		return &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "request inválido",
		}
	case http.StatusNotFound: // 404
		return &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: "ubicación no encontrada",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &GeocodingError{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("servicio no disponible (código %d)", statusCode),
		}
	default:
		return &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("error HTTP %d", statusCode),
		}
	}
}

// ClassifyAPIStatus clasifica el campo "status" de la respuesta de Google Maps.
// Devuelve nil para OK.
func ClassifyAPIStatus(status, message string) *GeocodingError {
	detail := status
	if message != "" {
		detail = fmt.Sprintf("%s (%s)", status, message)
	}

	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS":
		return &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: "ubicación no encontrada: " + detail,
		}
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "cuota excedida: " + detail,
		}
	case "REQUEST_DENIED":
		return &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "acceso denegado: " + detail,
		}
	case "INVALID_REQUEST":
		return &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "request inválido: " + detail,
		}
	default:
		return &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: "google maps status: " + detail,
		}
	}
}

// classifyTransportError distingue timeouts de otros errores de red.
func classifyTransportError(err error) *GeocodingError {
	if IsTimeoutError(err) {
		return &GeocodingError{Type: ErrorTypeTimeout, Message: "timeout de conexión", Err: err}
	}

	return &GeocodingError{Type: ErrorTypeNetworkError, Message: "error de red", Err: err}
}
