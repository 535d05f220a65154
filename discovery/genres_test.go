package discovery

import "testing"

func TestGenreIDResolvesKnownNames(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{name: "action", want: 1},
		{name: "Action", want: 1},
		{name: "  ROMANCE  ", want: 22},
		{name: "fantasy", want: 10},
		{name: "supernatural", want: 37},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := GenreID(tt.name)
			if !ok || id != tt.want {
				t.Fatalf("GenreID(%q) = %d/%v, want %d/true", tt.name, id, ok, tt.want)
			}
		})
	}
}

func TestGenreIDRejectsUnknownNames(t *testing.T) {
	for _, name := range []string{"", "isekai", "sports"} {
		if _, ok := GenreID(name); ok {
			t.Fatalf("GenreID(%q) should not resolve", name)
		}
	}
}

func TestGenreNamesSortedAndComplete(t *testing.T) {
	names := GenreNames()
	if len(names) != len(genreIDs) {
		t.Fatalf("names = %d, want %d", len(names), len(genreIDs))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
	for _, name := range names {
		if _, ok := GenreID(name); !ok {
			t.Fatalf("listed name %q must resolve", name)
		}
	}
}
