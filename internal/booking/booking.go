package booking

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ClientSnapshot is copied from the client when clientRef is set and is not
// refreshed afterwards.
type ClientSnapshot struct {
	Name  string `json:"name"`
	TaxID string `json:"taxId"`
}

type Booking struct {
	ID             string         `json:"id,omitempty"`
	ClientRef      string         `json:"clientRef"`
	ClientSnapshot ClientSnapshot `json:"clientSnapshot"`
	InvoiceNumber  string         `json:"invoiceNumber"`
	AccessKey      string         `json:"accessKey"`
	ScheduledDate  *time.Time     `json:"scheduledDate"`
	IsForecast     bool           `json:"isForecast"`
	Volumes        int64          `json:"volumes"`
	Notes          string         `json:"notes"`
	Status         Status         `json:"status"`
	History        []Entry        `json:"history"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Result is a written booking plus any non-fatal warnings.
type Result struct {
	*Booking
	Warnings []string `json:"warnings,omitempty"`
}

// HistoryView is the ledger as served to callers.
type HistoryView struct {
	BookingID     string  `json:"bookingId"`
	CurrentStatus Status  `json:"currentStatus"`
	Entries       []Entry `json:"entries"`
}

type CreateInput struct {
	ClientRef     string          `json:"clientRef" validate:"required"`
	InvoiceNumber string          `json:"invoiceNumber"`
	AccessKey     string          `json:"accessKey"`
	ScheduledDate string          `json:"scheduledDate" validate:"required_without=IsForecast"`
	IsForecast    bool            `json:"isForecast"`
	Volumes       json.RawMessage `json:"volumes"`
	Notes         string          `json:"notes"`
}

// UpdateInput is a partial update; absent fields are left alone.
type UpdateInput struct {
	InvoiceNumber *string          `json:"invoiceNumber"`
	AccessKey     *string          `json:"accessKey"`
	ScheduledDate Optional[string] `json:"scheduledDate"`
	IsForecast    *bool            `json:"isForecast"`
	Volumes       json.RawMessage  `json:"volumes"`
	ClientRef     *string          `json:"clientRef"`
	Notes         *string          `json:"notes"`
}

type ManualEntryInput struct {
	Status    string `json:"status"`
	Note      string `json:"note"`
	Timestamp string `json:"timestamp"`
}

type EntryEditInput struct {
	Status    *string `json:"status"`
	Note      *string `json:"note"`
	Timestamp *string `json:"timestamp"`
}

// Filter narrows ListBookings. Date is YYYY-MM-DD, Month is YYYY-MM.
type Filter struct {
	Status    string
	ClientRef string
	Date      string
	Month     string
}

// Optional distinguishes an absent JSON key from an explicit null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

var maxVolumes = decimal.NewFromInt(math.MaxInt64)

// ParseVolumes reads a volume count from a JSON number or numeric string.
// Missing or non-numeric input counts as zero; fractions are truncated.
func ParseVolumes(raw json.RawMessage) (int64, error) {
	var d decimal.Decimal
	var s string
	switch {
	case len(raw) == 0 || string(raw) == "null":
		return 0, nil
	case json.Unmarshal(raw, &s) == nil:
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return 0, nil
		}
		d = v
	default:
		v, err := decimal.NewFromString(strings.TrimSpace(string(raw)))
		if err != nil {
			return 0, nil
		}
		d = v
	}

	if d.IsNegative() {
		return 0, ValidationError{Code: CodeInvalidVolumes, Message: "volumes must not be negative"}
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxVolumes) {
		return 0, ValidationError{Code: CodeInvalidVolumes, Message: "volumes out of range"}
	}
	return d.IntPart(), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (in CreateInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ValidationError{Code: CodeValidationFailed, Message: err.Error()}
	}
	fe := verrs[0]
	switch fe.Field() {
	case "clientRef":
		return ValidationError{Code: CodeClientRequired, Message: "clientRef is required"}
	case "scheduledDate":
		return ValidationError{Code: CodeDateRequired, Message: "scheduledDate or isForecast is required"}
	default:
		return ValidationError{Code: CodeValidationFailed, Message: fe.Field() + " failed " + fe.Tag()}
	}
}
