package domain

import "strings"

// Address is captured from the payment collaborator's checkout flow and
// deduplicated per user via AddressIndex before being persisted.
type Address struct {
	ID           int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Street       string `json:"street,omitempty"`
	City         string `gorm:"not null" json:"city"`
	State        string `gorm:"not null" json:"state"`
	ZipCode      string `gorm:"column:zip_code;not null" json:"zip_code"`
	Country      string `gorm:"not null;default:USA" json:"country"`
	AddressIndex string `gorm:"column:address_index;not null;index:idx_address_index" json:"-"`
	UserID       int    `gorm:"not null;index" json:"user_id"`
}

func (Address) TableName() string { return "addresses" }

var addressIndexStripper = strings.NewReplacer(
	" ", "", "-", "", "/", "", ".", "", "&", "", "#", "",
)

// AddressIndexOf builds the deterministic dedup index: the uppercased
// concatenation of the non-empty fields stripped of spacing and punctuation.
// Field order matters, so callers always pass street, city, state, zip,
// country in that order.
func AddressIndexOf(fields ...string) string {
	var b strings.Builder
	for _, f := range fields {
		if f == "" {
			continue
		}
		b.WriteString(addressIndexStripper.Replace(strings.ToUpper(f)))
	}
	return b.String()
}

// Index returns the dedup index for the address's current field values.
func (a *Address) Index() string {
	return AddressIndexOf(a.Street, a.City, a.State, a.ZipCode, a.Country)
}
