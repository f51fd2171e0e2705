package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorInfo is a response-ready description of an error
type ErrorInfo struct {
	Code    string
	Message string
}

const pgUniqueViolation = "23505"

var (
	// Key (email)=(bruce@wayne.enterprises) already exists.
	pgDetailKey = regexp.MustCompile(`Key \(([^)]+)\)`)
	// UNIQUE constraint failed: users.email
	sqliteUniqueColumn = regexp.MustCompile(`UNIQUE constraint failed: [a-z_]+\.([a-z_]+)`)
)

// ParseError turns persistence and validation errors into a code and message
// that are safe to show to a client. context names the operation, e.g.
// "create product", and is used for the fallback messages.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: getDefaultErrorMessage(context)}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: getNotFoundMessage(context)}
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return ErrorInfo{Code: ValidationInvalidInput, Message: fieldMessage(fe)}
	}

	if field, ok := duplicateField(err); ok {
		if field == "email" {
			return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "email already exists"}
		}
		return ErrorInfo{Code: ResourceAlreadyExists, Message: fmt.Sprintf("%s already exists", field)}
	}

	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A backing service is unavailable. Please try again later",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: getDefaultErrorMessage(context)}
}

// IsDuplicateKey reports whether err is a unique constraint violation
func IsDuplicateKey(err error) bool {
	_, ok := duplicateField(err)
	return ok
}

func duplicateField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if m := pgDetailKey.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			return m[1], true
		}
		return columnFromConstraint(pgErr.ConstraintName), true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "record", true
	}

	msg := err.Error()
	if m := sqliteUniqueColumn.FindStringSubmatch(msg); len(m) == 2 {
		return m[1], true
	}
	if strings.Contains(strings.ToLower(msg), "duplicate key") {
		return "record", true
	}
	return "", false
}

// idx_users_email -> email
func columnFromConstraint(name string) string {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) == 3 && parts[0] == "idx" {
		return parts[2]
	}
	if name == "" {
		return "record"
	}
	return name
}

// ValidationFields maps validator failures to json field names
func ValidationFields(err error) map[string]string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}
	fields := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		fields[jsonFieldName(fe)] = fieldMessage(fe)
	}
	return fields
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return fe.StructField()
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonFieldName(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "product"):
		return "Product not found"
	case strings.Contains(contextLower, "order"):
		return "Order not found"
	case strings.Contains(contextLower, "cart"):
		return "Cart item not found"
	case strings.Contains(contextLower, "contact"):
		return "Message not found"
	case strings.Contains(contextLower, "user"):
		return "User not found"
	}
	return "The requested resource was not found"
}

func getDefaultErrorMessage(context string) string {
	if context == "" {
		return "Something went wrong. Please try again later"
	}
	return fmt.Sprintf("Failed to %s", context)
}

// ParseAndRespond parses err and writes it with the given status
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
