package media

import (
	"path"
	"strings"
)

// Size variants written next to the original-size image. Each is resized to
// at most Width pixels wide, preserving aspect ratio.
var Variants = []struct {
	Name  string
	Width int
}{
	{"small", 400},
	{"medium", 800},
	{"large", 1600},
}

// ImageURLs holds the public URL of every stored variant.
type ImageURLs struct {
	Small    string `json:"small"`
	Medium   string `json:"medium"`
	Large    string `json:"large"`
	Original string `json:"original"`
}

// VariantKey derives a variant key from the stored filename:
// "bondi/abc.webp" + "small" -> "bondi/abc_small.webp".
func VariantKey(filename, variant string) string {
	ext := path.Ext(filename)
	return strings.TrimSuffix(filename, ext) + "_" + variant + ext
}

// VariantKeys lists every key written for a stored filename, original first.
func VariantKeys(filename string) []string {
	keys := []string{filename}
	for _, v := range Variants {
		keys = append(keys, VariantKey(filename, v.Name))
	}
	return keys
}

// BuildImageURLs maps a stored filename to its variant URLs under baseURL.
func BuildImageURLs(baseURL, filename string) ImageURLs {
	base := strings.TrimRight(baseURL, "/")
	join := func(key string) string { return base + "/" + key }
	return ImageURLs{
		Small:    join(VariantKey(filename, "small")),
		Medium:   join(VariantKey(filename, "medium")),
		Large:    join(VariantKey(filename, "large")),
		Original: join(filename),
	}
}
