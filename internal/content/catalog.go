// Package content holds the static devotional material served by the bot:
// lessons with their quiz questions, the verse pool, donation details and
// the media assets attached to welcome, uplift and service messages.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Lesson struct {
	Title     string   `yaml:"title" validate:"required"`
	Body      string   `yaml:"body" validate:"required"`
	Questions []string `yaml:"questions" validate:"dive,required"`
}

type Donation struct {
	Bank          string `yaml:"bank" validate:"required"`
	AccountName   string `yaml:"account_name" validate:"required"`
	AccountNumber string `yaml:"account_number" validate:"required"`
}

// Media are local file paths. Empty means "not configured".
type Media struct {
	Welcome string
	Uplift  string
	Service string
}

type Catalog struct {
	Lessons  []Lesson `yaml:"lessons" validate:"required,min=1,dive"`
	Verses   []string `yaml:"verses" validate:"required,min=1,dive,required"`
	Donation Donation `yaml:"donation" validate:"required"`

	Media Media `yaml:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("content: embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse strictly decodes and validates a YAML catalog.
func Parse(b []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid field %s (%s)", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) LessonCount() int { return len(c.Lessons) }

// Lesson returns the lesson at index i.
func (c *Catalog) Lesson(i int) (Lesson, bool) {
	if i < 0 || i >= len(c.Lessons) {
		return Lesson{}, false
	}
	return c.Lessons[i], true
}

func (c *Catalog) RandomVerse() string {
	return c.Verses[rand.IntN(len(c.Verses))]
}

func (d Donation) Text() string {
	return "💵 Church Account Details:\n\n" +
		"Bank: " + d.Bank + "\n" +
		"Account Name: " + d.AccountName + "\n" +
		"Account Number: " + d.AccountNumber + "\n\n" +
		"Thank you for your generous giving!"
}
