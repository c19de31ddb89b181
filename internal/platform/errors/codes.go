// Package errors provides structured error handling with i18n support.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request identity errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUserIDRequired  Code = "USER_ID_REQUIRED"

	// Log entry errors
	CodeLogFoodNameEmpty     Code = "LOG_FOOD_NAME_EMPTY"
	CodeLogCaloriesNegative  Code = "LOG_CALORIES_NEGATIVE"
	CodeLogServingQtyInvalid Code = "LOG_SERVING_QTY_INVALID"
	CodeLogServingUnitEmpty  Code = "LOG_SERVING_UNIT_EMPTY"
	CodeLogActivityIDEmpty   Code = "LOG_ACTIVITY_ID_EMPTY"
	CodeLogDurationInvalid   Code = "LOG_DURATION_INVALID"
	CodeLogDateInvalid       Code = "LOG_DATE_INVALID"
	CodeLogTimezoneInvalid   Code = "LOG_TIMEZONE_INVALID"
	CodeCaloriesMETInvalid   Code = "CALORIES_MET_INVALID"
	CodeProfileWeightInvalid Code = "PROFILE_WEIGHT_INVALID"
	CodeRequestBodyInvalid   Code = "REQUEST_BODY_INVALID"
	CodePageTokenInvalid     Code = "PAGE_TOKEN_INVALID"
	CodeNutritionQueryEmpty  Code = "NUTRITION_QUERY_EMPTY"

	// Ledger errors
	CodeCreditAmountNegative Code = "CREDIT_AMOUNT_NEGATIVE"
	CodeCreditSourceInvalid  Code = "CREDIT_SOURCE_INVALID"

	// Lookup errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeActivityNotFound Code = "ACTIVITY_NOT_FOUND"

	// Dependency errors
	CodeStorageUnavailable    Code = "STORAGE_UNAVAILABLE"
	CodeNutritionLookupFailed Code = "NUTRITION_LOOKUP_FAILED"
)

// Kind groups codes by how a caller should react to them.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindUnauthenticated Kind = "unauthenticated"
	KindTransient       Kind = "transient_storage"
	KindExternal        Kind = "external_lookup"
	KindInternal        Kind = "internal"
)

// Kind maps a code to its error kind.
func (c Code) Kind() Kind {
	switch c {
	case CodeUserIDRequired,
		CodeLogFoodNameEmpty,
		CodeLogCaloriesNegative,
		CodeLogServingQtyInvalid,
		CodeLogServingUnitEmpty,
		CodeLogActivityIDEmpty,
		CodeLogDurationInvalid,
		CodeLogDateInvalid,
		CodeLogTimezoneInvalid,
		CodeCaloriesMETInvalid,
		CodeProfileWeightInvalid,
		CodeRequestBodyInvalid,
		CodePageTokenInvalid,
		CodeNutritionQueryEmpty,
		CodeCreditAmountNegative,
		CodeCreditSourceInvalid:
		return KindValidation
	case CodeNotFound, CodeActivityNotFound:
		return KindNotFound
	case CodeUnauthenticated:
		return KindUnauthenticated
	case CodeStorageUnavailable:
		return KindTransient
	case CodeNutritionLookupFailed:
		return KindExternal
	default:
		return KindInternal
	}
}

// HTTPStatus maps a code to the HTTP status returned to API clients.
func (c Code) HTTPStatus() int {
	switch c.Kind() {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindTransient:
		return http.StatusServiceUnavailable
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
