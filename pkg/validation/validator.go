// Package validation checks a contact request against a variant's rule table
// before it is composed and sent. Checks run in four stages (general fields,
// site address, destination address, details) and the first failing stage
// produces the single message shown to the user.
package validation

import (
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/rules"
	"github.com/goliatone/go-pickupform/pkg/visibility"
	"github.com/goliatone/go-pickupform/pkg/visibility/expr"
)

// User-facing messages, one per failing check.
const (
	MsgRequired          = "必須項目が未入力です。"
	MsgService           = "ご希望のサービスを選択してください。"
	MsgOption            = "選択肢にない値が入力されています。"
	MsgPickupDate        = "お引き取り希望日時の形式が正しくありません。"
	MsgSiteAddress       = "回収現場の住所を入力してください。"
	MsgSitePostal        = "郵便番号は7桁の数字で入力してください。"
	MsgDestination       = "引越し先の住所を入力してください。"
	MsgDestinationPostal = "引越し先の郵便番号は7桁の数字で入力してください。"
	MsgItems             = "回収・引越しする物を入力してください。"
	MsgNote              = "ご相談内容を入力してください。"
	MsgImages            = "画像を添付してください。"
)

const (
	postalTag   = "len=7,numeric"
	dateTimeTag = "datetime=" + model.DateTimeLayout
)

// Validator runs the staged checks. The zero value is not usable; call New.
type Validator struct {
	eval   visibility.Evaluator
	format *playground.Validate
}

// Option configures a Validator.
type Option func(*Validator)

// WithEvaluator overrides the condition evaluator used for required-if rules.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(v *Validator) {
		if eval != nil {
			v.eval = eval
		}
	}
}

// New builds a Validator with the expression evaluator and playground format
// checks.
func New(options ...Option) *Validator {
	v := &Validator{
		eval:   expr.New(),
		format: playground.New(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

var std = New()

// Validate checks req against variant with the package default Validator.
func Validate(req model.ContactRequest, variant rules.Variant) error {
	return std.Validate(req, variant)
}

// Validate returns nil when req satisfies variant, or an *Error describing the
// first failing stage.
func (v *Validator) Validate(req model.ContactRequest, variant rules.Variant) error {
	stages := []func(model.ContactRequest, rules.Variant) (*Error, error){
		v.general,
		v.site,
		v.destination,
		v.details,
	}
	for _, stage := range stages {
		failed, err := stage(req, variant)
		if err != nil {
			return err
		}
		if failed != nil {
			return failed
		}
	}
	return nil
}

// IsPostalCode reports whether value is exactly seven ASCII digits.
func (v *Validator) IsPostalCode(value string) bool {
	return v.format.Var(value, postalTag) == nil && isASCIIDigits(value)
}

func (v *Validator) general(req model.ContactRequest, variant rules.Variant) (*Error, error) {
	missing, err := v.missing(req, variant, model.GroupGeneral)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return fail(model.GroupGeneral, MsgRequired, missing...), nil
	}

	if req.Service != "" && !variant.Offers(req.Service) {
		return fail(model.GroupGeneral, MsgService, model.FieldService), nil
	}

	for _, field := range model.Fields() {
		if field.Group != model.GroupGeneral {
			continue
		}
		value, _ := req.Get(field.Key)
		if value == "" {
			continue
		}
		switch field.Kind {
		case model.KindSelect:
			if len(field.Options) > 0 && !contains(field.Options, value) {
				return fail(model.GroupGeneral, MsgOption, field.Key), nil
			}
		case model.KindDateTime:
			if v.format.Var(value, dateTimeTag) != nil {
				return fail(model.GroupGeneral, MsgPickupDate, field.Key), nil
			}
		}
	}
	return nil, nil
}

func (v *Validator) site(req model.ContactRequest, variant rules.Variant) (*Error, error) {
	missing, err := v.missing(req, variant, model.GroupSite)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return fail(model.GroupSite, MsgSiteAddress, missing...), nil
	}
	if req.PostalCode != "" && !v.IsPostalCode(req.PostalCode) {
		return fail(model.GroupSite, MsgSitePostal, model.FieldPostalCode), nil
	}
	return nil, nil
}

func (v *Validator) destination(req model.ContactRequest, variant rules.Variant) (*Error, error) {
	if !req.NeedsDestination() {
		return nil, nil
	}
	missing, err := v.missing(req, variant, model.GroupDestination)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return fail(model.GroupDestination, MsgDestination, missing...), nil
	}
	if req.MovePostalCode != "" && !v.IsPostalCode(req.MovePostalCode) {
		return fail(model.GroupDestination, MsgDestinationPostal, model.FieldMovePostalCode), nil
	}
	return nil, nil
}

func (v *Validator) details(req model.ContactRequest, variant rules.Variant) (*Error, error) {
	checks := []struct {
		key     model.FieldKey
		message string
		blank   bool
	}{
		{model.FieldItems, MsgItems, strings.TrimSpace(req.Items) == ""},
		{model.FieldNote, MsgNote, strings.TrimSpace(req.Note) == ""},
		{model.FieldImages, MsgImages, len(req.Images) == 0},
	}
	for _, check := range checks {
		if !check.blank {
			continue
		}
		required, err := variant.Required(check.key, req, v.eval)
		if err != nil {
			return nil, err
		}
		if required {
			return fail(model.GroupDetails, check.message, check.key), nil
		}
	}
	return nil, nil
}

// missing lists required fields of group whose value is blank.
func (v *Validator) missing(req model.ContactRequest, variant rules.Variant, group model.Group) ([]model.FieldKey, error) {
	var out []model.FieldKey
	for _, field := range model.Fields() {
		if field.Group != group || field.Kind == model.KindFiles {
			continue
		}
		value, _ := req.Get(field.Key)
		if strings.TrimSpace(value) != "" {
			continue
		}
		required, err := variant.Required(field.Key, req, v.eval)
		if err != nil {
			return nil, err
		}
		if required {
			out = append(out, field.Key)
		}
	}
	return out, nil
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}

func isASCIIDigits(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
