package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

const maxRequestBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusFor maps an application error type to an HTTP status
func statusFor(errType apperrors.ErrorType) int {
	switch errType {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError writes err with the status of its type. Internal
// details are logged, not returned.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(apperrors.TypeOf(err))
	logger := observability.LoggerFromContext(r.Context())

	message := "internal server error"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request rejected")
	}
	respondWithError(w, status, message)
}

// decodeJSON reads a size-limited JSON body. Numbers decode as json.Number.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// filterRequest is the wire form of a filter. Value may be a JSON number or
// a numeric string.
type filterRequest struct {
	Metric   string      `json:"metric"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

func toFilters(reqs []filterRequest) ([]entities.Filter, error) {
	filters := make([]entities.Filter, 0, len(reqs))
	for _, fr := range reqs {
		value, err := utils.ParseNumber(fr.Value)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("filter %q: %v", fr.Metric, err))
		}
		f := entities.Filter{
			Metric:   entities.Metric(fr.Metric),
			Operator: entities.Operator(fr.Operator),
			Value:    value,
		}
		if err := f.Validate(); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// queryInt reads a non-negative integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return v, nil
}
