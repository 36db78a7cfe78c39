package dialog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Session parameters arrive as loosely-typed JSON: numbers are float64, the
// NLU's composite slots (date, time, amount) are nested maps, and users can
// get anything into a string slot. Decoding is defensive throughout; a slot
// that does not parse is treated as unfilled so the dialogue re-asks instead
// of the handler crashing.

type DateParam struct {
	Year  int
	Month int
	Day   int
}

type TimeParam struct {
	Hours   int
	Minutes int
	Seconds int
}

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// PostJobParams is the collected slot state of the post-job dialogue.
type PostJobParams struct {
	Description string
	Category    string
	Date        *DateParam
	Time        *TimeParam
	ZipCode     string
	Location    string
	Amount      *Money
	PostingFee  decimal.Decimal
}

// FindJobParams is the collected slot state of the find-job dialogue.
type FindJobParams struct {
	Category string
	ZipCode  string
}

func DecodePostJobParams(params map[string]interface{}) *PostJobParams {
	out := &PostJobParams{
		Description: asString(params["job_description"]),
		Category:    asString(params["job_category"]),
		ZipCode:     asDigits(params["zip_code"]),
		Location:    asString(params["location_data"]),
	}
	out.Date = decodeDate(params["date"])
	out.Time = decodeTime(params["time"])
	// A combined date_time slot fills whichever half is still missing.
	if combined, ok := asMap(params["date_time"]); ok {
		if out.Date == nil {
			out.Date = decodeDate(combined)
		}
		if out.Time == nil {
			out.Time = decodeTime(combined)
		}
	}
	out.Amount = decodeMoney(params["amount"])
	if fee, ok := asDecimal(params["posting_fee"]); ok {
		out.PostingFee = fee
	}
	return out
}

func DecodeFindJobParams(params map[string]interface{}) *FindJobParams {
	return &FindJobParams{
		Category: asString(params["job_category"]),
		ZipCode:  asDigits(params["zip_code"]),
	}
}

// Scheduled composes the date and time slots into one timestamp.
func (p *PostJobParams) Scheduled() (time.Time, bool) {
	if p.Date == nil || p.Time == nil {
		return time.Time{}, false
	}
	d, tm := p.Date, p.Time
	if d.Year < 1 || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return time.Time{}, false
	}
	if tm.Hours < 0 || tm.Hours > 23 || tm.Minutes < 0 || tm.Minutes > 59 {
		return time.Time{}, false
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, tm.Hours, tm.Minutes, tm.Seconds, 0, time.UTC), true
}

func (d *DateParam) Format() string {
	return fmt.Sprintf("%d/%d/%d", d.Month, d.Day, d.Year)
}

func (t *TimeParam) Format() string {
	ref := time.Date(2000, 1, 1, t.Hours, t.Minutes, t.Seconds, 0, time.UTC)
	return ref.Format("03:04 PM")
}

// ---------- loose-JSON decoding ----------

func decodeDate(v interface{}) *DateParam {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	year, okY := asInt(m["year"])
	month, okM := asInt(m["month"])
	day, okD := asInt(m["day"])
	if !okY || !okM || !okD {
		return nil
	}
	return &DateParam{Year: year, Month: month, Day: day}
}

func decodeTime(v interface{}) *TimeParam {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	hours, okH := asInt(m["hours"])
	if !okH {
		return nil
	}
	minutes, _ := asInt(m["minutes"])
	seconds, _ := asInt(m["seconds"])
	return &TimeParam{Hours: hours, Minutes: minutes, Seconds: seconds}
}

func decodeMoney(v interface{}) *Money {
	if m, ok := asMap(v); ok {
		amount, okA := asDecimal(m["amount"])
		if !okA {
			return nil
		}
		return &Money{Amount: amount, Currency: asString(m["currency"])}
	}
	// Bare numeric slot.
	if amount, ok := asDecimal(v); ok {
		return &Money{Amount: amount}
	}
	return nil
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// asDigits renders numeric or string input as a digit string; zip codes come
// through as float64 when the NLU recognizes them as numbers.
func asDigits(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func asDecimal(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

// ---------- free-text accumulation ----------

var confirmationTokens = map[string]struct{}{
	"yes": {}, "no": {}, "y": {}, "n": {}, "yeah": {}, "yep": {}, "nope": {}, "ok": {}, "okay": {},
}

// ShouldAppendText decides whether a free-form turn extends the accumulated
// job description. Repeats of text already captured and bare yes/no
// confirmations are not description content.
func ShouldAppendText(accumulated, incoming string) bool {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return false
	}
	normalized := strings.ToLower(strings.Trim(incoming, " .,!"))
	if _, isConfirmation := confirmationTokens[normalized]; isConfirmation {
		return false
	}
	if strings.Contains(strings.ToLower(accumulated), strings.ToLower(incoming)) {
		return false
	}
	return true
}

// AppendText applies the accumulation policy and returns the new description.
func AppendText(accumulated, incoming string) string {
	if !ShouldAppendText(accumulated, incoming) {
		return accumulated
	}
	if strings.TrimSpace(accumulated) == "" {
		return strings.TrimSpace(incoming)
	}
	return strings.TrimSpace(accumulated) + " " + strings.TrimSpace(incoming)
}
