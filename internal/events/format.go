package events

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Genoux/website/internal/domain"
)

// TimeSuffix is appended to every displayed start time.
const TimeSuffix = "EST"

var (
	frenchMonths = [...]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}
	frenchDays   = [...]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}
)

// Formatter renders event labels for one locale.
type Formatter struct {
	tag      language.Tag
	printer  *message.Printer
	location *time.Location
	free     string
}

// NewFormatter builds a formatter. Unknown locales fall back to French.
func NewFormatter(locale string, loc *time.Location) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.French
	}
	base, _ := tag.Base()
	free := "Gratuit"
	if base.String() == "en" {
		free = "Free"
	}
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{tag: tag, printer: message.NewPrinter(tag), location: loc, free: free}
}

// Locale returns the BCP 47 tag in use.
func (f Formatter) Locale() string {
	return f.tag.String()
}

func (f Formatter) french() bool {
	base, _ := f.tag.Base()
	return base.String() == "fr"
}

// Date renders the event day, e.g. "samedi 15 mars 2025" or "Saturday, March 15, 2025".
func (f Formatter) Date(ev domain.Event) string {
	start, err := StartsAt(ev, f.location)
	if err != nil {
		return ev.Date
	}
	if f.french() {
		return fmt.Sprintf("%s %d %s %d", frenchDays[start.Weekday()], start.Day(), frenchMonths[start.Month()-1], start.Year())
	}
	return start.Format("Monday, January 2, 2006")
}

// Time renders the start time on a 24-hour clock with the timezone suffix.
func (f Formatter) Time(ev domain.Event) string {
	start, err := StartsAt(ev, f.location)
	if err != nil {
		return strings.TrimSpace(ev.Time)
	}
	return start.Format("15:04") + " " + TimeSuffix
}

// Price renders an amount in minor units. Zero renders as the free label.
func (f Formatter) Price(minor int64, code string) string {
	if minor == 0 {
		if f.free == "" {
			return "Gratuit"
		}
		return f.free
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = currency.CAD
	}
	scale, _ := currency.Standard.Rounding(unit)
	amount := float64(minor) / math.Pow10(scale)
	printer := f.printer
	if printer == nil {
		printer = message.NewPrinter(language.French)
	}
	return printer.Sprint(currency.Symbol(unit.Amount(amount)))
}

// EventPrice is Price for an event, defaulting the currency.
func (f Formatter) EventPrice(ev domain.Event, fallbackCurrency string) string {
	code := ev.Currency
	if code == "" {
		code = fallbackCurrency
	}
	return f.Price(ev.Price, code)
}

// PosterURL resolves a stored poster reference. Absolute URLs pass through;
// storage paths are joined onto the asset base.
func PosterURL(assetBase, poster string) string {
	poster = strings.TrimSpace(poster)
	if poster == "" {
		return ""
	}
	if u, err := url.Parse(poster); err == nil && u.IsAbs() {
		return poster
	}
	if assetBase == "" {
		return "/" + strings.TrimLeft(poster, "/")
	}
	joined, err := url.JoinPath(assetBase, strings.TrimLeft(poster, "/"))
	if err != nil {
		return strings.TrimRight(assetBase, "/") + "/" + strings.TrimLeft(poster, "/")
	}
	return joined
}

// RegisterPath is the registration page for an event, keyed by slug when set.
func RegisterPath(ev domain.Event) string {
	key := ev.Slug
	if key == "" {
		key = ev.ID
	}
	return "/" + url.PathEscape(key) + "/register"
}
