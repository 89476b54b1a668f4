package safe

import (
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	cases := []struct {
		name string
		in   string
		opts StringOptions
		want string
	}{
		{"collapses and uppercases", "  juzgado   primero\tcivil ", StringOptions{}, "JUZGADO PRIMERO CIVIL"},
		{"transliterates", "Niños Héroes", StringOptions{}, "NINOS HEROES"},
		{"saves enie", "Niños Héroes", StringOptions{SaveEnie: true}, "NIÑOS HEROES"},
		{"keeps accents", "Menor Cuantía", StringOptions{KeepAccents: true}, "MENOR CUANTÍA"},
		{"keeps case", "Civil", StringOptions{KeepCase: true}, "Civil"},
		{"strips symbols", "a$b#c (d)/e-f.", StringOptions{}, "A B C (D)/E-F."},
		{"empty", "   ", StringOptions{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, String(tc.in, tc.opts))
		})
	}
}

func TestStringTruncatesWithEllipsis(t *testing.T) {
	out := String(strings.Repeat("abc", 1000), StringOptions{MaxLen: 10})
	assert.Equal(t, 10, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, Ellipsis))
	assert.Equal(t, "ABCABCABC…", out)
}

func TestIdempotence(t *testing.T) {
	inputs := []string{
		"  Juzgado  Primero de Primera Instancia en Materia Civil  ",
		strings.Repeat("ñandú ", 100),
		"exp. 123/2020 (acumulado)",
		"",
		"…",
		"a - b -- c",
	}
	for _, in := range inputs {
		for _, opts := range []StringOptions{{}, {SaveEnie: true}, {MaxLen: 10}, {KeepAccents: true, MaxLen: 7}} {
			once := String(in, opts)
			assert.Equal(t, once, String(once, opts), "String(%q, %+v)", in, opts)
		}
		if once, err := Clave(in, ClaveOptions{}); err == nil {
			again, err := Clave(once, ClaveOptions{})
			require.NoError(t, err)
			assert.Equal(t, once, again)
		}
		msg := Message(in, 12)
		assert.Equal(t, msg, Message(msg, 12))
	}

	for _, in := range []string{"Admin@PJECZ.gob.mx ", "0123/2020-a-b", "5/2001"} {
		if e, err := Email(in); err == nil {
			again, _ := Email(e)
			assert.Equal(t, e, again)
		}
		if e, err := Expediente(in); err == nil {
			again, _ := Expediente(e)
			assert.Equal(t, e, again)
		}
		if e, err := Sentencia(in); err == nil {
			again, _ := Sentencia(e)
			assert.Equal(t, e, again)
		}
	}
}

func TestClave(t *testing.T) {
	out, err := Clave(" civ ", ClaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "CIV", out)

	out, err = Clave("j1 -- civ /mon", ClaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "J1-CIV-MON", out)

	out, err = Clave("ABCDEFGHIJ-KLMNOPQRSTU", ClaveOptions{MaxLen: 11})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ", out)

	out, err = Clave("12 ab 34", ClaveOptions{OnlyDigits: true})
	require.NoError(t, err)
	assert.Equal(t, "12-34", out)

	_, err = Clave("$%&", ClaveOptions{})
	require.Error(t, err)
}

func TestEmail(t *testing.T) {
	out, err := Email(" Soporte@PJECZ.gob.mx")
	require.NoError(t, err)
	assert.Equal(t, "soporte@pjecz.gob.mx", out)

	_, err = Email("no-es-correo")
	require.Error(t, err)
	_, err = Email("")
	require.Error(t, err)

	assert.Equal(t, "sop@pjecz", EmailFragment(" SOP @pjecz!"))
}

func TestCURPAndRFC(t *testing.T) {
	out, err := CURP("gaxx800101hcolrr09")
	require.NoError(t, err)
	assert.Equal(t, "GAXX800101HCOLRR09", out)

	_, err = CURP("GAXX8001")
	require.Error(t, err)

	out, err = CURP("")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = RFC("gaxx800101ab1")
	require.NoError(t, err)
	assert.Equal(t, "GAXX800101AB1", out)

	_, err = RFC("12345")
	require.Error(t, err)
}

func TestExpediente(t *testing.T) {
	year := strconv.Itoa(time.Now().Year())

	_, err := Expediente("123/1899")
	require.Error(t, err)

	out, err := Expediente("123/" + year)
	require.NoError(t, err)
	assert.Equal(t, "123/"+year, out)

	out, err = Expediente("0045/2019-i-ii")
	require.NoError(t, err)
	assert.Equal(t, "45/2019-I-II", out)

	for _, bad := range []string{"0/2019", "45-2019", "45/2019-A-B-C", "45/3019", "abc/2019", "45/2019-$"} {
		_, err := Expediente(bad)
		assert.Error(t, err, bad)
	}
}

func TestSentenciaAndNumeroPublicacion(t *testing.T) {
	out, err := Sentencia("007/2021")
	require.NoError(t, err)
	assert.Equal(t, "7/2021", out)

	_, err = Sentencia("7/2021-A")
	require.Error(t, err)

	out, err = NumeroPublicacion("15/2000")
	require.NoError(t, err)
	assert.Equal(t, "15/2000", out)
}

func TestLenientNormalizers(t *testing.T) {
	assert.Equal(t, "10.0.0.1", IPAddress(" 10.0.0.1 "))
	assert.Equal(t, "", IPAddress("10.0.0"))
	assert.Equal(t, "01:23:45:67:89:AB", MACAddress("01-23-45-67-89-ab"))
	assert.Equal(t, "", MACAddress("zz"))
	assert.Equal(t, "8441234567", Telefono("(844) 123-4567"))
	assert.Equal(t, "", Telefono("123"))
	assert.Equal(t, "https://pjecz.gob.mx/x", URL("https://pjecz.gob.mx/x"))
	assert.Equal(t, "", URL("ftp://pjecz.gob.mx"))
	assert.Equal(t, "", URL("pjecz"))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, EmptyMessage, Message("  ", 0))
	assert.Equal(t, "Nueva autoridad J1", Message("Nueva   autoridad\nJ1", 0))
	out := Message(strings.Repeat("x", 300), 0)
	assert.Equal(t, DefaultMessageMaxLen, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, Ellipsis))
}
