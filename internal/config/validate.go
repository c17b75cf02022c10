package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"churchbot/internal/task/scheduler"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json paths ("scheduler.jobs.uplift.every") instead of Go names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(strings.TrimSpace(fl.Field().String()))
		return err == nil && d >= 0
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, _, err := scheduler.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := scheduler.ParseWeekdays([]string{fl.Field().String()})
		return err == nil
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		j := sl.Current().Interface().(DailyJobConfig)
		if j.Enabled && strings.TrimSpace(j.At) == "" {
			sl.ReportError(j.At, "at", "At", "required", "")
		}
	}, DailyJobConfig{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		j := sl.Current().Interface().(IntervalJobConfig)
		if !j.Enabled {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(j.Every))
		if err != nil || d < time.Second {
			sl.ReportError(j.Every, "every", "Every", "min_interval", "1s")
		}
	}, IntervalJobConfig{})
	return v
}

var validate = newValidator()

// Validate checks cfg and reports every failing field by its config path.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	path := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return path + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", path, fe.Param(), fmt.Sprint(fe.Value()))
	case "duration":
		return fmt.Sprintf("%s: invalid duration %q", path, fmt.Sprint(fe.Value()))
	case "clock":
		return fmt.Sprintf("%s: want HH:MM, got %q", path, fmt.Sprint(fe.Value()))
	case "min_interval":
		return fmt.Sprintf("%s must be a duration of at least %s", path, fe.Param())
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", path, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", path, fe.Tag())
}
