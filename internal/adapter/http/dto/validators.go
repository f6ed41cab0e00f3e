package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"custodial-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Wallet ids, TypeIDs and hex or base58 addresses all fit this alphabet.
var safeIDRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("safe_id", func(fl validator.FieldLevel) bool {
		return safeIDRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("wallet_type", func(fl validator.FieldLevel) bool {
		raw := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		return raw == "" || domain.WalletType(raw).Valid()
	})
}

// SanitizeStruct normalizes the string fields (string and *string) of a
// struct pointer after binding. The `sanitize` tag picks the rule:
//
//	(none)   trim and HTML-escape; bank references end up in statements
//	"lower"  trim and lowercase; enum-like values such as wallet type
//	"-"      leave untouched
func SanitizeStruct(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}

	sv := rv.Elem()
	st := sv.Type()
	for i := range sv.NumField() {
		rule := st.Field(i).Tag.Get("sanitize")
		if rule == "-" {
			continue
		}

		f := sv.Field(i)
		if !f.CanSet() {
			continue
		}
		if f.Kind() == reflect.Pointer {
			if f.IsNil() {
				continue
			}
			f = f.Elem()
		}
		if f.Kind() == reflect.String {
			f.SetString(normalize(rule, f.String()))
		}
	}
}

func normalize(rule, s string) string {
	s = strings.TrimSpace(s)
	if rule == "lower" {
		return strings.ToLower(s)
	}
	return html.EscapeString(s)
}
