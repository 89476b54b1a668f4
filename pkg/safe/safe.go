// Package safe canonicalizes user input before it is filtered on or persisted.
// Every normalizer is idempotent: feeding its output back yields the same value.
package safe

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	appErrors "github.com/pjecz/hercules/pkg/errors"
)

const (
	DefaultStringMaxLen  = 250
	DefaultClaveMaxLen   = 16
	DefaultMessageMaxLen = 250
	ExpedienteMaxLen     = 24
	Ellipsis             = "…"
	EmptyMessage         = "Sin descripción"
)

var now = time.Now

var (
	emailRegexp    = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9\-]+(\.[a-z0-9\-]+)*\.[a-z]{2,}$`)
	curpRegexp     = regexp.MustCompile(`^[A-Z]{4}\d{6}[A-Z]{6}[A-Z0-9]{2}$`)
	rfcRegexp      = regexp.MustCompile(`^[A-Z&Ñ]{3,4}\d{6}[A-Z0-9]{3}$`)
	numeroAnio     = regexp.MustCompile(`^(\d+)/(\d{4})$`)
	expedienteExtr = regexp.MustCompile(`^[A-Z0-9]+$`)
	whitespace     = regexp.MustCompile(`\s+`)
)

func invalid(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(format, args...))
}

// StringOptions tunes String. The zero value transliterates, drops ñ and uppercases.
type StringOptions struct {
	MaxLen      int
	KeepAccents bool
	SaveEnie    bool
	KeepCase    bool
}

// String collapses whitespace, removes characters outside the allowed set and
// truncates with an ellipsis when longer than MaxLen.
func String(s string, opts StringOptions) string {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = DefaultStringMaxLen
	}
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if !opts.KeepAccents {
		s = transliterate(s, opts.SaveEnie)
	}
	if !opts.KeepCase {
		s = strings.ToUpper(s)
	}

	var b strings.Builder
	for _, r := range s {
		if allowedStringRune(r, opts) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return truncate(collapse(b.String()), maxLen)
}

func allowedStringRune(r rune, opts StringOptions) bool {
	switch {
	case r < utf8.RuneSelf:
		return isASCIIAlnum(r) || strings.ContainsRune(".()/-", r)
	case r == '…':
		return true
	case r == 'ñ' || r == 'Ñ':
		return opts.SaveEnie || opts.KeepAccents
	default:
		return opts.KeepAccents && unicode.IsLetter(r)
	}
}

// ClaveOptions tunes Clave.
type ClaveOptions struct {
	MaxLen     int
	OnlyDigits bool
	Separator  string
}

// Clave returns an uppercase key made of ASCII letters, digits and the separator.
func Clave(s string, opts ClaveOptions) (string, error) {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = DefaultClaveMaxLen
	}
	sep := opts.Separator
	if sep == "" {
		sep = "-"
	}

	s = strings.ToUpper(transliterate(strings.TrimSpace(s), false))

	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		keep := unicode.IsDigit(r) && r < utf8.RuneSelf
		if !opts.OnlyDigits {
			keep = keep || (r >= 'A' && r <= 'Z')
		}
		switch {
		case keep:
			if pendingSep && b.Len() > 0 {
				b.WriteString(sep)
			}
			pendingSep = false
			b.WriteRune(r)
		case string(r) == sep || unicode.IsSpace(r):
			pendingSep = true
		}
	}

	out := b.String()
	if utf8.RuneCountInString(out) > maxLen {
		out = strings.TrimRight(string([]rune(out)[:maxLen]), sep)
	}
	if out == "" {
		return "", appErrors.Clone(appErrors.ErrEmpty, "clave vacia o no valida")
	}
	return out, nil
}

// ClaveFragment is the lenient form of Clave used by listing filters; invalid input yields "".
func ClaveFragment(s string) string {
	out, err := Clave(s, ClaveOptions{})
	if err != nil {
		return ""
	}
	return out
}

// Email lowercases and validates an e-mail address.
func Email(s string) (string, error) {
	out := strings.ToLower(strings.TrimSpace(s))
	if out == "" {
		return "", appErrors.Clone(appErrors.ErrEmpty, "email vacio")
	}
	if !emailRegexp.MatchString(out) {
		return "", invalid("email no valido: %s", out)
	}
	return out, nil
}

// EmailFragment keeps only characters that can appear in an e-mail, for filtering.
func EmailFragment(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r < utf8.RuneSelf && (isASCIIAlnum(r) || strings.ContainsRune("@._%+-", r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CURP validates a Clave Única de Registro de Población. Empty input is allowed.
func CURP(s string) (string, error) {
	out := compactUpper(s)
	if out == "" {
		return "", nil
	}
	if !curpRegexp.MatchString(out) {
		return "", invalid("CURP no valido: %s", out)
	}
	return out, nil
}

// RFC validates a Registro Federal de Contribuyentes. Empty input is allowed.
func RFC(s string) (string, error) {
	out := compactUpper(s)
	if out == "" {
		return "", nil
	}
	if !rfcRegexp.MatchString(out) {
		return "", invalid("RFC no valido: %s", out)
	}
	return out, nil
}

// Expediente parses N/YYYY[-EXTRA[-EXTRA]] into its canonical form.
func Expediente(s string) (string, error) {
	raw := compactUpper(s)
	if raw == "" {
		return "", appErrors.Clone(appErrors.ErrEmpty, "expediente vacio")
	}
	if utf8.RuneCountInString(raw) > ExpedienteMaxLen {
		return "", invalid("expediente demasiado largo: %s", raw)
	}

	numero, rest, ok := strings.Cut(raw, "/")
	if !ok {
		return "", invalid("expediente sin diagonal: %s", raw)
	}
	parts := strings.Split(rest, "-")
	if len(parts) > 3 {
		return "", invalid("expediente con demasiados sufijos: %s", raw)
	}

	n, anio, err := numeroYAnio(numero, parts[0])
	if err != nil {
		return "", err
	}

	out := strconv.Itoa(n) + "/" + strconv.Itoa(anio)
	for _, extra := range parts[1:] {
		if !expedienteExtr.MatchString(extra) {
			return "", invalid("sufijo de expediente no valido: %s", extra)
		}
		out += "-" + extra
	}
	return out, nil
}

// Sentencia parses N/YYYY.
func Sentencia(s string) (string, error) {
	return numeroAnioCanonical(s, "sentencia")
}

// NumeroPublicacion parses N/YYYY.
func NumeroPublicacion(s string) (string, error) {
	return numeroAnioCanonical(s, "numero de publicacion")
}

func numeroAnioCanonical(s, label string) (string, error) {
	raw := compactUpper(s)
	if raw == "" {
		return "", appErrors.Clone(appErrors.ErrEmpty, label+" vacio")
	}
	m := numeroAnio.FindStringSubmatch(raw)
	if m == nil {
		return "", invalid("%s no valido: %s", label, raw)
	}
	n, anio, err := numeroYAnio(m[1], m[2])
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n) + "/" + strconv.Itoa(anio), nil
}

func numeroYAnio(numero, anio string) (int, int, error) {
	n, err := strconv.Atoi(numero)
	if err != nil || n <= 0 {
		return 0, 0, invalid("numero no valido: %s", numero)
	}
	if len(anio) != 4 {
		return 0, 0, invalid("año no valido: %s", anio)
	}
	y, err := strconv.Atoi(anio)
	if err != nil || y < 1900 || y > now().Year() {
		return 0, 0, invalid("año fuera de rango: %s", anio)
	}
	return n, y, nil
}

// IPAddress returns the canonical address or "" when s is not an IP.
func IPAddress(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

// MACAddress returns the uppercase colon form or "".
func MACAddress(s string) string {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil || len(hw) != 6 {
		return ""
	}
	return strings.ToUpper(hw.String())
}

// Telefono keeps the ten digits of a national number or returns "".
func Telefono(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != 10 {
		return ""
	}
	return b.String()
}

// URL accepts absolute http and https URLs; anything else yields "".
func URL(s string) string {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

// Message prepares a free-form description for the audit log.
func Message(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMessageMaxLen
	}
	out := collapse(s)
	if out == "" {
		return EmptyMessage
	}
	return truncate(out, maxLen)
}

func transliterate(s string, saveEnie bool) string {
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if !saveEnie {
		out, _, err := transform.String(strip, s)
		if err != nil {
			return s
		}
		return out
	}

	var b strings.Builder
	for _, chunk := range strings.SplitAfter(norm.NFC.String(s), "") {
		if chunk == "ñ" || chunk == "Ñ" {
			b.WriteString(chunk)
			continue
		}
		out, _, err := transform.String(strip, chunk)
		if err != nil {
			out = chunk
		}
		b.WriteString(out)
	}
	return b.String()
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen == 1 {
		return Ellipsis
	}
	return strings.TrimRight(string(r[:maxLen-1]), " ") + Ellipsis
}

func compactUpper(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
