package util

import "testing"

func TestNormalizeForSearch(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "lower and spaces", input: "mh 12 345", want: "MH12345"},
		{name: "letter o to zero", input: "MHO1 2O3", want: "MH01203"},
		{name: "lower o to zero", input: "dob", want: "D0B"},
		{name: "punctuation", input: "DL No.: MH-12/34\n\t", want: "DLN0MH1234"},
		{name: "underscore dropped", input: "A_B", want: "AB"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeForSearch(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeForSearchIdempotent(t *testing.T) {
	inputs := []string{
		"NAME JOHN DOB:15-06-1995 MH1234567890123 DOI:01-01-2015",
		"  ôöÖ straße  ",
		"MH O12 345 678 90",
		"",
		"!!!@@@###",
	}
	for _, in := range inputs {
		once := NormalizeForSearch(in)
		if twice := NormalizeForSearch(once); twice != once {
			t.Fatalf("not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestNormalizeForDates(t *testing.T) {
	got := NormalizeForDates("DOB: 15-O6-1995 Name: Oscar doi")
	want := "D0B: 15-06-1995 Name: 0scar doi"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
