package media

import (
	"reflect"
	"testing"
)

func TestBuildImageURLs(t *testing.T) {
	t.Parallel()
	got := BuildImageURLs("/media/", "bondi/abc.webp")
	want := ImageURLs{
		Small:    "/media/bondi/abc_small.webp",
		Medium:   "/media/bondi/abc_medium.webp",
		Large:    "/media/bondi/abc_large.webp",
		Original: "/media/bondi/abc.webp",
	}
	if got != want {
		t.Errorf("BuildImageURLs() = %+v, want %+v", got, want)
	}
}

func TestVariantKeys(t *testing.T) {
	t.Parallel()
	got := VariantKeys("manly/x.webp")
	want := []string{"manly/x.webp", "manly/x_small.webp", "manly/x_medium.webp", "manly/x_large.webp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("VariantKeys() = %v, want %v", got, want)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{10 << 20, "10 MiB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.in); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSavingsPercent(t *testing.T) {
	tests := []struct {
		orig, savings int64
		want          float64
	}{
		{1000, 250, 25},
		{3, 1, 33.3},
		{0, 0, 0},
		{100, -4, 0},
	}
	for _, tt := range tests {
		if got := SavingsPercent(tt.orig, tt.savings); got != tt.want {
			t.Errorf("SavingsPercent(%d, %d) = %v, want %v", tt.orig, tt.savings, got, tt.want)
		}
	}
}
