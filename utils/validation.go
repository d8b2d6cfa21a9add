package utils

import (
	"errors"
	"reflect"
	"strings"

	"tutorlink_go/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"role": func(fl validator.FieldLevel) bool {
			return IsValidRole(fl.Field().String())
		},
		"user_status": func(fl validator.FieldLevel) bool {
			return IsValidStatus(fl.Field().String())
		},
		"booking_status": func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case models.BookingPending, models.BookingAccepted, models.BookingActive,
				models.BookingCompleted, models.BookingDeclined, models.BookingCancelled:
				return true
			}
			return false
		},
		"application_status": func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected:
				return true
			}
			return false
		},
		"year_level": func(fl validator.FieldLevel) bool {
			n := fl.Field().Int()
			return n >= 1 && n <= 5
		},
		"preferred_time": func(fl validator.FieldLevel) bool {
			_, err := ParseTimeWindow(fl.Field().String())
			return err == nil
		},
		"question_type": func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "", models.QuestionMultipleChoice, models.QuestionTrueFalse, models.QuestionShortAnswer:
				return true
			}
			return false
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

// ValidateStruct runs the struct tags and returns field -> failed rule, or nil.
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
