package format

import (
	"net/netip"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/net/idna"

	"github.com/reoring/jsonskema/internal/pointer"
)

// IsDateTime accepts RFC 3339 date-times. The date/time separator may also be
// a lowercase 't', a space or an underscore.
func IsDateTime(s string) bool {
	if len(s) < 11 {
		return false
	}
	switch s[10] {
	case 'T', 't', ' ', '_':
	default:
		return false
	}
	return IsDate(s[:10]) && IsTime(s[11:])
}

// IsDate accepts RFC 3339 full-date values, including calendar checks.
func IsDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// IsTime accepts RFC 3339 full-time values. A leap second is valid only when
// it falls on 23:59:60 UTC.
func IsTime(s string) bool {
	if len(s) < 9 || s[2] != ':' || s[5] != ':' {
		return false
	}
	h, ok1 := twoDigits(s[0:2])
	m, ok2 := twoDigits(s[3:5])
	sec, ok3 := twoDigits(s[6:8])
	if !ok1 || !ok2 || !ok3 || h > 23 || m > 59 || sec > 60 {
		return false
	}
	rest := s[8:]
	if rest[0] == '.' {
		i := 1
		for i < len(rest) && isDigit(rest[i]) {
			i++
		}
		if i == 1 {
			return false
		}
		rest = rest[i:]
	}
	if rest == "" {
		return false
	}
	offset := 0
	switch rest[0] {
	case 'Z', 'z':
		if len(rest) != 1 {
			return false
		}
	case '+', '-':
		if len(rest) != 6 || rest[3] != ':' {
			return false
		}
		oh, ok1 := twoDigits(rest[1:3])
		om, ok2 := twoDigits(rest[4:6])
		if !ok1 || !ok2 || oh > 23 || om > 59 {
			return false
		}
		offset = oh*60 + om
		if rest[0] == '-' {
			offset = -offset
		}
	default:
		return false
	}
	if sec == 60 {
		utc := ((h*60+m-offset)%1440 + 1440) % 1440
		return utc == 23*60+59
	}
	return true
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || !isDigit(s[0]) || !isDigit(s[1]) {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

var durationRe = regexp2.MustCompile(`^P(?!$)((\d+Y)?(\d+M)?(\d+D)?(T(?=\d)(\d+H)?(\d+M)?(\d+S)?)?|\d+W)$`, regexp2.None)

// IsDuration accepts ISO 8601 durations as profiled by RFC 3339 appendix A.
func IsDuration(s string) bool {
	if !isASCII(s) {
		return false
	}
	m, err := durationRe.MatchString(s)
	return err == nil && m
}

var uuidRe = regexp2.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`, regexp2.None)

// IsUUID accepts RFC 4122 textual UUIDs.
func IsUUID(s string) bool {
	m, err := uuidRe.MatchString(s)
	return err == nil && m
}

// IsHostname accepts RFC 1123 host names.
func IsHostname(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !isLabel(label) {
			return false
		}
	}
	return true
}

func isLabel(l string) bool {
	if l == "" || len(l) > 63 || l[0] == '-' || l[len(l)-1] == '-' {
		return false
	}
	for i := 0; i < len(l); i++ {
		c := l[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) || c == '-') {
			return false
		}
	}
	return true
}

// IsIDNHostname accepts internationalized host names valid for registration.
func IsIDNHostname(s string) bool {
	if s == "" {
		return false
	}
	ascii, err := idna.Registration.ToASCII(s)
	if err != nil {
		return false
	}
	return IsHostname(ascii)
}

// IsEmail accepts RFC 5321 mailboxes with ASCII domains.
func IsEmail(s string) bool {
	local, domain, ok := splitMailbox(s)
	if !ok || !isASCII(local) {
		return false
	}
	return isMailDomain(domain, IsHostname)
}

// IsIDNEmail accepts RFC 6531 mailboxes.
func IsIDNEmail(s string) bool {
	_, domain, ok := splitMailbox(s)
	if !ok {
		return false
	}
	return isMailDomain(domain, IsIDNHostname)
}

func splitMailbox(s string) (local, domain string, ok bool) {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return "", "", false
	}
	local, domain = s[:at], s[at+1:]
	if strings.HasPrefix(local, `"`) {
		return local, domain, len(local) >= 2 && strings.HasSuffix(local, `"`)
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return "", "", false
	}
	for _, r := range local {
		if r < 0x80 && !isAtext(byte(r)) && r != '.' {
			return "", "", false
		}
	}
	return local, domain, true
}

func isAtext(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) {
		return true
	}
	return strings.IndexByte("!#$%&'*+-/=?^_`{|}~", c) >= 0
}

func isMailDomain(domain string, host func(string) bool) bool {
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		lit := domain[1 : len(domain)-1]
		if v6, ok := strings.CutPrefix(lit, "IPv6:"); ok {
			return IsIPv6(v6)
		}
		return IsIPv4(lit)
	}
	return host(domain)
}

// IsIPv4 accepts dotted-quad addresses without leading zeros.
func IsIPv4(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

// IsIPv6 accepts RFC 4291 addresses without zone identifiers.
func IsIPv6(s string) bool {
	if strings.ContainsRune(s, '%') {
		return false
	}
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is6()
}

// IsURI accepts absolute URIs.
func IsURI(s string) bool {
	return isASCII(s) && isAbsolute(s)
}

// IsURIReference accepts URIs and relative references.
func IsURIReference(s string) bool {
	return isASCII(s) && parsesAsReference(s)
}

// IsIRI accepts absolute IRIs.
func IsIRI(s string) bool { return isAbsolute(s) }

// IsIRIReference accepts IRIs and relative references.
func IsIRIReference(s string) bool { return parsesAsReference(s) }

func isAbsolute(s string) bool {
	if !parsesAsReference(s) {
		return false
	}
	u, _ := url.Parse(s)
	if u.Scheme == "" {
		return false
	}
	// Bracketed hosts must hold IPv6 literals.
	if strings.HasPrefix(u.Host, "[") {
		h := u.Hostname()
		return IsIPv6(h)
	}
	return true
}

func parsesAsReference(s string) bool {
	if strings.ContainsAny(s, " \\^`{}|<>\"") || !utf8.ValidString(s) {
		return false
	}
	_, err := url.Parse(s)
	return err == nil
}

// IsURITemplate accepts RFC 6570 templates with balanced, unnested
// expressions.
func IsURITemplate(s string) bool {
	open := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if open {
				return false
			}
			open = true
		case '}':
			if !open {
				return false
			}
			open = false
		}
	}
	return !open
}

// IsJSONPointer accepts RFC 6901 pointers.
func IsJSONPointer(s string) bool {
	_, err := pointer.Parse(s)
	return err == nil
}

// IsRelativeJSONPointer accepts relative JSON pointers: a non-negative integer
// followed by '#' or a JSON pointer.
func IsRelativeJSONPointer(s string) bool {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == 0 || (i > 1 && s[0] == '0') {
		return false
	}
	rest := s[i:]
	return rest == "#" || IsJSONPointer(rest)
}

// IsRegex accepts patterns the schema regular expression engine compiles.
func IsRegex(s string) bool {
	_, err := CompilePattern(s)
	return err == nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
