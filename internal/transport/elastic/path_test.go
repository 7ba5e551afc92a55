package elastic

import "testing"

func TestDocumentPath(t *testing.T) {
	if got := DocumentPath("ads", "car", 12); got != "/ads/car/12" {
		t.Errorf("DocumentPath = %q", got)
	}
}

func TestSearchPath(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"red", "/ads/car/_search?q=red&pretty=true"},
		{"color:red", "/ads/car/_search?q=color:red&pretty=true"},
		{"", "/ads/car/_search?q=&pretty=true"},
		{"make:saab AND year:[1990 TO *]", "/ads/car/_search?q=make:saab%20AND%20year:[1990%20TO%20*]&pretty=true"},
		{"title:\"a b\"", "/ads/car/_search?q=title:%22a%20b%22&pretty=true"},
		{"tag:#1", "/ads/car/_search?q=tag:%231&pretty=true"},
		{"a%20b", "/ads/car/_search?q=a%20b&pretty=true"},
		{"100%", "/ads/car/_search?q=100%25&pretty=true"},
		{"a\tb", "/ads/car/_search?q=a%09b&pretty=true"},
		{"café", "/ads/car/_search?q=caf%C3%A9&pretty=true"},
	}
	for _, tc := range tests {
		if got := SearchPath("ads", "car", tc.query); got != tc.want {
			t.Errorf("SearchPath(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}
