package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"metro/pkg/logger"
	"metro/pkg/model"

	"github.com/go-playground/validator/v10"
)

var (
	stationCodeRegex = regexp.MustCompile(`^[A-Z]{2}$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("station_code", validateStationCode); err != nil {
		log.Fatal("Failed to register 'station_code' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateStationCode(fl validator.FieldLevel) bool {
	return stationCodeRegex.MatchString(fl.Field().String())
}

// Validate checks a booking request after sanitization and after the
// request-level stations have been copied onto its passengers.
func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if req.Seats != 0 && req.Seats != len(req.Passengers) {
		return ValidationErrors{
			ValidationError{
				Field:   "seats",
				Message: fmt.Sprintf("seats (%d) must match the number of passengers (%d)", req.Seats, len(req.Passengers)),
			},
		}
	}

	var errs ValidationErrors
	for i, p := range req.Passengers {
		if p.Source == p.Destination {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("passengers[%d].destination", i),
				Message: "destination must differ from source",
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (v *BookingValidator) ValidateRelease(req *model.ReleaseRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := fieldPath(err)
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +919876543210)", field)
		case "station_code":
			message = fmt.Sprintf("%s must be a two-letter station code (e.g., CH)", field)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}

// fieldPath drops the root struct name: "BookingRequest.passengers[0].age"
// becomes "passengers[0].age".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}
