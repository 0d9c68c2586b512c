package web

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"railboard/internal/api"
	"railboard/internal/model"
)

// datetimeLocal is the format produced by <input type="datetime-local">.
const datetimeLocal = "2006-01-02T15:04"

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// newValidator builds the form validator with the username charset rule.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username_chars", func(fl validator.FieldLevel) bool {
		return usernameRE.MatchString(fl.Field().String())
	})
	return v
}

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type registerForm struct {
	Username        string `form:"username" validate:"required,min=3,max=20,username_chars"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6,max=100"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

type trainForm struct {
	TrainNumber      string `form:"train_number" validate:"required"`
	DepartureStation string `form:"departure_station" validate:"required"`
	ArrivalStation   string `form:"arrival_station" validate:"required"`
	DepartureTime    string `form:"departure_time" validate:"required"`
	ArrivalTime      string `form:"arrival_time" validate:"required"`
	Status           string `form:"status" validate:"required,oneof=scheduled delayed cancelled departed arrived"`
	Type             string `form:"type" validate:"required,oneof=express passenger freight"`
	Platform         string `form:"platform"`
}

// input converts the validated form to the create/update payload. Timestamp
// parse failures come back as field-scoped errors.
func (f trainForm) input() (api.TrainInput, map[string]string) {
	fieldErrors := make(map[string]string)

	departure, err := time.ParseInLocation(datetimeLocal, f.DepartureTime, time.Local)
	if err != nil {
		fieldErrors["departure_time"] = "Departure time is invalid"
	}
	arrival, err := time.ParseInLocation(datetimeLocal, f.ArrivalTime, time.Local)
	if err != nil {
		fieldErrors["arrival_time"] = "Arrival time is invalid"
	}
	if len(fieldErrors) > 0 {
		return api.TrainInput{}, fieldErrors
	}

	return api.TrainInput{
		TrainNumber:      f.TrainNumber,
		DepartureStation: f.DepartureStation,
		ArrivalStation:   f.ArrivalStation,
		DepartureTime:    departure,
		ArrivalTime:      arrival,
		Status:           model.TrainStatus(f.Status),
		Type:             model.TrainType(f.Type),
		Platform:         f.Platform,
	}, nil
}

// trainFormFrom pre-fills the form from an existing record for the edit
// screen.
func trainFormFrom(train *model.Train) trainForm {
	return trainForm{
		TrainNumber:      train.TrainNumber,
		DepartureStation: train.DepartureStation,
		ArrivalStation:   train.ArrivalStation,
		DepartureTime:    train.DepartureTime.Local().Format(datetimeLocal),
		ArrivalTime:      train.ArrivalTime.Local().Format(datetimeLocal),
		Status:           string(train.Status),
		Type:             string(train.Type),
		Platform:         train.Platform,
	}
}

// formFieldNames maps struct fields to the form input names templates key on.
var formFieldNames = map[string]string{
	"Username":         "username",
	"Email":            "email",
	"Password":         "password",
	"ConfirmPassword":  "confirm_password",
	"TrainNumber":      "train_number",
	"DepartureStation": "departure_station",
	"ArrivalStation":   "arrival_station",
	"DepartureTime":    "departure_time",
	"ArrivalTime":      "arrival_time",
	"Status":           "status",
	"Type":             "type",
	"Platform":         "platform",
}

// fieldLabels are the human names used in validation messages.
var fieldLabels = map[string]string{
	"username":          "Username",
	"email":             "Email",
	"password":          "Password",
	"confirm_password":  "Confirm password",
	"train_number":      "Train number",
	"departure_station": "Departure station",
	"arrival_station":   "Arrival station",
	"departure_time":    "Departure time",
	"arrival_time":      "Arrival time",
	"status":            "Status",
	"type":              "Type",
}

// fieldErrors translates validator failures into field-scoped messages.
// These never reach the wire; they only block submission.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["general"] = "Invalid input"
		return out
	}
	for _, fe := range verrs {
		name := formFieldNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		label := fieldLabels[name]
		if label == "" {
			label = name
		}
		switch fe.Tag() {
		case "required":
			out[name] = label + " is required"
		case "min":
			out[name] = fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
		case "max":
			out[name] = fmt.Sprintf("%s must be less than %s characters", label, fe.Param())
		case "email":
			out[name] = "Please enter a valid email address"
		case "eqfield":
			out[name] = "Passwords do not match"
		case "username_chars":
			out[name] = "Username can only contain letters, numbers, underscores and hyphens"
		case "oneof":
			out[name] = label + " has an invalid value"
		default:
			out[name] = label + " is invalid"
		}
	}
	return out
}
