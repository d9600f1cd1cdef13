package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
	"github.com/irsalhamdi/honey-shop/api/weberr"
)

var validate *validator.Validate

var translator ut.Translator

func init() {

	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)
}

// FieldErrors maps a json field name to the reason it was rejected.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fe[k])
	}
	return strings.Join(msgs, "; ")
}

func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		if len(verrors) < 1 {
			return nil
		}

		fields := make(FieldErrors, len(verrors))
		for _, ve := range verrors {
			fields[ve.Field()] = ve.Translate(translator)
		}
		return fields
	}

	return nil
}

// Invalid converts a Check failure into a request error answering 422 with
// the per-field messages.
func Invalid(err error) error {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return weberr.Invalid(err, fe)
	}
	return weberr.BadRequest(err)
}

func GenerateID() string {
	return uuid.NewString()
}

func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("ID is not in its proper form")
	}
	return nil
}
