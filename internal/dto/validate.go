package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/hostelhq/maintenance-api/internal/models"
)

// validate is shared by every payload type in this package. Gin's binding
// layer only enforces `binding` tags, so handlers call Validate explicitly
// after a successful bind.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("request_status", func(fl validator.FieldLevel) bool {
		return models.ValidStatus(models.RequestStatus(fl.Field().String()))
	})
	v.RegisterValidation("request_priority", func(fl validator.FieldLevel) bool {
		switch models.RequestPriority(fl.Field().String()) {
		case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
			return true
		}
		return false
	})
	v.RegisterValidation("request_category", func(fl validator.FieldLevel) bool {
		switch models.RequestCategory(fl.Field().String()) {
		case models.CategoryElectrical, models.CategoryPlumbing, models.CategoryCarpentry,
			models.CategoryCleaning, models.CategoryAppliance, models.CategoryStructural, models.CategoryOther:
			return true
		}
		return false
	})
	v.RegisterValidation("issue_type", func(fl validator.FieldLevel) bool {
		switch models.IssueType(fl.Field().String()) {
		case models.IssueRoutine, models.IssueBreakdown, models.IssuePreventive, models.IssueEmergency:
			return true
		}
		return false
	})
	v.RegisterValidation("recurrence_rule", func(fl validator.FieldLevel) bool {
		return models.ValidRecurrenceRule(models.RecurrenceRule(fl.Field().String()))
	})
	return v
}

// Validate runs the struct-level rules on a bound payload.
func Validate(payload interface{}) error {
	return validate.Struct(payload)
}
