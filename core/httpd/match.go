package httpd

import "strings"

// MatchWildcard reports whether uri matches pattern. Only the end of a
// pattern is special:
//
//	/foo/*   matches /foo/ and /foo/bar, but not /foo
//	/foo/?   matches /foo and /foo/
//	/foo/?*  matches /foo, /foo/ and /foo/bar (as does /foo/*?)
//
// Anything else must match exactly. The query string is not part of uri.
func MatchWildcard(pattern, uri string) bool {
	tpl := pattern
	var wildcard, optional bool

	// A trailing "?*" or "*?" combines both.
	for range 2 {
		switch {
		case !wildcard && strings.HasSuffix(tpl, "*"):
			wildcard = true
			tpl = tpl[:len(tpl)-1]
		case !optional && strings.HasSuffix(tpl, "?"):
			optional = true
			tpl = tpl[:len(tpl)-1]
		}
	}

	if wildcard {
		if strings.HasPrefix(uri, tpl) {
			return true
		}
	} else if uri == tpl {
		return true
	}

	// "?" makes the character before it optional.
	if optional && len(tpl) > 0 {
		return uri == tpl[:len(tpl)-1]
	}
	return false
}
