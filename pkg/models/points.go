package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPayload is returned when a configuration payload fails validation.
var ErrInvalidPayload = errors.New("invalid configuration payload")

// PointsConfig is the Modbus points configuration consumed by the gateway process.
// Pointer fields distinguish "missing" from a zero value.
type PointsConfig struct {
	IP                string    `json:"ip,omitempty" validate:"omitempty,hostname_rfc1123|ip"`
	Port              int       `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	UnitID            int       `json:"unit_id,omitempty" validate:"omitempty,min=0,max=255"`
	PollInterval      float64   `json:"poll_interval,omitempty" validate:"omitempty,gt=0"`
	HeartbeatInterval float64   `json:"heartbeat_interval,omitempty" validate:"omitempty,gt=0"`
	ByteOrder         string    `json:"byte_order,omitempty" validate:"omitempty,oneof=big little"`
	WordOrder         string    `json:"word_order,omitempty" validate:"omitempty,oneof=big little"`
	Commands          []Command `json:"commands" validate:"required,dive"`
}

// Command is one Modbus read request whose registers are split into fields.
type Command struct {
	FunctionCode *int    `json:"function_code" validate:"required,oneof=1 2 3 4"`
	Address      *int    `json:"address" validate:"required,min=0,max=65535"`
	Quantity     *int    `json:"quantity" validate:"required,min=1,max=2000"`
	Fields       []Field `json:"fields" validate:"required,dive"`
}

// Field maps a slice of a command's registers to a named value.
type Field struct {
	Name      string `json:"name" validate:"required"`
	Offset    *int   `json:"offset" validate:"required,min=0"`
	Datatype  string `json:"datatype" validate:"required,oneof=bool uint16 int16 uint32 int32 float32 string"`
	ByteOrder string `json:"byte_order,omitempty" validate:"omitempty,oneof=big little"`
	WordOrder string `json:"word_order,omitempty" validate:"omitempty,oneof=big little"`
	Length    int    `json:"length,omitempty" validate:"omitempty,min=1"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidatePayload decodes payload as a PointsConfig and checks it against the
// rules the gateway process enforces at startup.
func ValidatePayload(payload string) (*PointsConfig, error) {
	var cfg PointsConfig
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := payloadValidator().Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return &cfg, nil
}

func describe(fe validator.FieldError) string {
	path := strings.TrimPrefix(fe.Namespace(), "PointsConfig.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", path, fe.Param())
	case "min", "max", "gt":
		return fmt.Sprintf("%s must satisfy %s=%s", path, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}
