package predict

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/goliatone/go-ototahmin/pkg/model"
)

// DefaultSuffix is appended to every formatted price.
const DefaultSuffix = " TL"

// Formatter renders prediction results for a locale.
type Formatter struct {
	locale  string
	printer *message.Printer
	suffix  string
	failure string
}

// FormatOption configures a Formatter.
type FormatOption func(*Formatter)

// WithSuffix replaces the currency suffix.
func WithSuffix(suffix string) FormatOption {
	return func(f *Formatter) {
		f.suffix = suffix
	}
}

// WithFailureMessage replaces the text shown when no price is available.
func WithFailureMessage(msg string) FormatOption {
	return func(f *Formatter) {
		if msg != "" {
			f.failure = msg
		}
	}
}

// NewFormatter returns a formatter for locale ("tr" or "en"). Unsupported
// locales fall back to Turkish.
func NewFormatter(locale string, options ...FormatOption) Formatter {
	locale = model.NormalizeLocale(locale)
	tag := language.Turkish
	if locale == model.LocaleEnglish {
		tag = language.English
	}
	f := Formatter{
		locale:  locale,
		printer: message.NewPrinter(tag),
		suffix:  DefaultSuffix,
		failure: model.TextsFor(locale).Failure,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&f)
		}
	}
	return f
}

// Locale reports the formatter locale.
func (f Formatter) Locale() string {
	return f.locale
}

// Price groups thousands with the locale separator and keeps at most three
// fraction digits: 452000 → "452.000 TL" in Turkish.
func (f Formatter) Price(v float64) string {
	printer := f.printer
	if printer == nil {
		printer = message.NewPrinter(language.Turkish)
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3))) + f.suffix
}

// Failure returns the fixed failure message.
func (f Formatter) Failure() string {
	if f.failure == "" {
		return model.TextsFor(f.locale).Failure
	}
	return f.failure
}

// Display returns the text shown for a prediction attempt: the formatted
// price on success, the failure message otherwise.
func (f Formatter) Display(res Result, err error) string {
	if err != nil {
		return f.Failure()
	}
	return f.Price(res.Price)
}
