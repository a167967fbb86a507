// Package inputval validates structured input (configuration, share-link
// request parameters) using waffle/pantry/validate.
//
// Define a struct with validate tags and optional label tags, populate it,
// and call Validate to get readable error messages:
//
//	type bucketConfig struct {
//	    Base string `validate:"required,bucketbase" label:"Bucket base name"`
//	}
//
//	if res := inputval.Validate(bucketConfig{Base: base}); res.HasErrors() {
//	    return errors.New(res.First())
//	}
package inputval

import (
	"net/mail"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/stratafiles/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule, with a message ready to show.
type FieldError struct {
	Field   string // json name, or the Go name when there is no json tag
	Label   string
	Message string
}

// Result collects the failures from one Validate call.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// customRule is a string rule registered on top of pantry/validate's
// built-ins. tail completes the message after the field label.
type customRule struct {
	check func(string) bool
	tail  string
}

var customRules = map[string]customRule{
	"role": {
		check: func(s string) bool { return models.Role(strings.TrimSpace(s)).Valid() },
		tail:  " must be one of: viewer, editor, owner.",
	},
	"bucketbase": {
		check: IsValidBucketBase,
		tail:  " must be 3-53 lowercase letters, digits or hyphens, starting and ending with a letter or digit.",
	},
	"httpurl": {
		check: IsValidHTTPURL,
		tail:  " must be a valid URL starting with http:// or https://.",
	},
	"objectid": {
		check: IsValidObjectID,
		tail:  " is not a valid ID.",
	},
}

var (
	validatorOnce sync.Once
	validator     *validate.Validator
)

func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		validator = validate.New(validate.WithStopOnFirstError())
		for name, rule := range customRules {
			check := rule.check
			validator.RegisterRuleFunc(name, func(value any) bool {
				s, ok := value.(string)
				return ok && check(s)
			}, name)
		}
	})
	return validator
}

// Validate checks s (a struct or pointer to struct) against its validate
// tags. Messages use the field's label tag when present.
//
// Besides the pantry/validate built-ins (required, email, oneof, min, max)
// the rules role, bucketbase, httpurl and objectid are available.
func Validate(s any) *Result {
	res := &Result{}
	err := getValidator().Struct(s)
	if err == nil {
		return res
	}

	errs, ok := err.(validate.Errors)
	if !ok {
		return res
	}
	labels := fieldLabels(s)
	for _, e := range errs {
		label := labels[e.Field]
		if label == "" {
			label = e.Field
		}
		res.Errors = append(res.Errors, FieldError{
			Field:   e.Field,
			Label:   label,
			Message: message(label, e.Rule, e.Param),
		})
	}
	return res
}

// fieldLabels maps each field's validation name to its label tag.
func fieldLabels(s any) map[string]string {
	labels := map[string]string{}
	v := reflect.Indirect(reflect.ValueOf(s))
	if v.Kind() != reflect.Struct {
		return labels
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		label := f.Tag.Get("label")
		if label == "" {
			continue
		}
		name := f.Name
		if j, _, _ := strings.Cut(f.Tag.Get("json"), ","); j != "" && j != "-" {
			name = j
		}
		labels[name] = label
	}
	return labels
}

func message(label, rule, param string) string {
	if r, ok := customRules[rule]; ok {
		return label + r.tail
	}
	switch rule {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	default:
		return label + " is invalid."
	}
}

// IsValidEmail reports whether s is a bare RFC 5322 address. Display-name
// forms such as "Ann <ann@example.com>" are rejected.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// maxBucketBase leaves room for the longest bucket suffix ("-documents")
// within the 63 character S3 limit.
const maxBucketBase = 63 - len("-documents")

// IsValidBucketBase checks a base bucket name against S3 naming rules. Dots
// are not allowed because they break virtual-host TLS.
func IsValidBucketBase(s string) bool {
	if len(s) < 3 || len(s) > maxBucketBase {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		alnum := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !alnum && (c != '-' || i == 0 || i == len(s)-1) {
			return false
		}
	}
	return true
}

func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}
