package domain

import "testing"

func TestAddressIndexOf(t *testing.T) {
	cases := []struct {
		name   string
		fields []string
		want   string
	}{
		{
			name:   "basic",
			fields: []string{"123 Main St.", "San Diego", "CA", "92101", "USA"},
			want:   "123MAINSTSANDIEGOCA92101USA",
		},
		{
			name:   "punctuation_stripped",
			fields: []string{"4-B/2 Oak & Pine #7", "Austin", "TX", "78701", "USA"},
			want:   "4B2OAKPINE7AUSTINTX78701USA",
		},
		{
			name:   "empty_fields_skipped",
			fields: []string{"", "San Diego", "CA", "92101", ""},
			want:   "SANDIEGOCA92101",
		},
		{
			name:   "all_empty",
			fields: []string{"", "", ""},
			want:   "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AddressIndexOf(tc.fields...); got != tc.want {
				t.Fatalf("AddressIndexOf(%v) = %q, want %q", tc.fields, got, tc.want)
			}
		})
	}
}

func TestAddressIndex_SameAddressDifferentFormatting(t *testing.T) {
	a := Address{Street: "123 Main St.", City: "San Diego", State: "CA", ZipCode: "92101", Country: "USA"}
	b := Address{Street: "123 main st", City: "san diego", State: "ca", ZipCode: "92101", Country: "usa"}
	if a.Index() != b.Index() {
		t.Fatalf("expected equal indexes, got %q and %q", a.Index(), b.Index())
	}
}
