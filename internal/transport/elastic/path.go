package elastic

import (
	"strconv"
	"strings"
)

// DocumentPath builds /{index}/{type}/{id}.
func DocumentPath(index, typ string, id int) string {
	return "/" + strings.Join([]string{index, typ, strconv.Itoa(id)}, "/")
}

// SearchPath builds /{index}/{type}/_search?q={query}&pretty=true.
// Query syntax such as ':', '&' or '*' is passed through as written; only bytes
// that cannot appear in a request URI are percent-encoded.
func SearchPath(index, typ, query string) string {
	return "/" + index + "/" + typ + "/_search?q=" + requote(query) + "&pretty=true"
}

// uriSafe lists the bytes that may stay literal in a request URI,
// besides ASCII letters and digits. '#' is excluded: it would start a fragment.
const uriSafe = "-._~!$&'()*+,/:;=?@[]"

// requote percent-encodes bytes that are illegal in a URI and leaves the rest,
// including existing %XX escapes, untouched.
func requote(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isAlnum(c) || strings.IndexByte(uriSafe, c) >= 0:
			b.WriteByte(c)
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
