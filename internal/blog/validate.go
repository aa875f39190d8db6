package blog

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	errs "github.com/syrthax/blogsync/internal/errors"
)

// Draft is the editable form of a post before it is saved.
type Draft struct {
	Title string
	Date  string
	Body  string
}

var canonicalDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks that a draft is complete enough to save. It runs before
// any network call so an incomplete form never reaches the store.
func (d Draft) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required),
		validation.Field(&d.Date, validation.Required,
			validation.Match(canonicalDateRe).Error("must be in YYYY-MM-DD form")),
		validation.Field(&d.Body, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	return nil
}
