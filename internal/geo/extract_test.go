package geo_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/geo"
)

func TestExtractCities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "comma separated",
			text: "Paris, Lyon, Marseille",
			want: []string{"Paris", "Lyon", "Marseille"},
		},
		{
			name: "arrows between stops",
			text: "Roma -> Firenze → Venezia",
			want: []string{"Roma", "Firenze", "Venezia"},
		},
		{
			name: "hyphenated name survives",
			text: "Aix-en-Provence, Nice",
			want: []string{"Aix-en-Provence", "Nice"},
		},
		{
			name: "space surrounded dash splits",
			text: "Paris - Lyon",
			want: []string{"Paris", "Lyon"},
		},
		{
			name: "stoplist and numeric tokens dropped",
			text: "Paris, days, via, 2024, Lyon",
			want: []string{"Paris", "Lyon"},
		},
		{
			name: "short tokens dropped",
			text: "NY, Paris",
			want: []string{"Paris"},
		},
		{
			name: "case insensitive dedup keeps first",
			text: "Paris, PARIS, paris, Lyon",
			want: []string{"Paris", "Lyon"},
		},
		{
			name: "no delimiters is one token",
			text: "Buenos Aires",
			want: []string{"Buenos Aires"},
		},
		{
			name: "mixed delimiters",
			text: "Wien; Bratislava | Budapest / Beograd\nSofia",
			want: []string{"Wien", "Bratislava", "Budapest", "Beograd", "Sofia"},
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "only noise",
			text: "7 - 14",
			want: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := geo.ExtractCities(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractCities(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractCities_CapsAtTwenty(t *testing.T) {
	t.Parallel()

	var names []string
	for i := 0; i < 30; i++ {
		names = append(names, fmt.Sprintf("City%02d", i))
	}

	got := geo.ExtractCities(strings.Join(names, ", "))
	if len(got) != 20 {
		t.Fatalf("got %d cities, want 20", len(got))
	}
	if got[0] != "City00" || got[19] != "City19" {
		t.Errorf("cap did not preserve order: first=%q last=%q", got[0], got[19])
	}
}
