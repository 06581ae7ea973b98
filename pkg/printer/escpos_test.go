package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lines strips ESC/POS command sequences and splits the printable text
func lines(t *testing.T, b []byte) []string {
	t.Helper()
	var out bytes.Buffer
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case ESC, GS:
			switch {
			case i+1 < len(b) && b[i+1] == '@':
				i++
			default:
				i += 2
			}
		default:
			out.WriteByte(b[i])
		}
	}
	text := strings.TrimSuffix(out.String(), "\n")
	return strings.Split(text, "\n")
}

func TestDocumentStartsWithInit(t *testing.T) {
	d := NewDocument(0)
	assert.Equal(t, Width58mm, d.Width())
	assert.Equal(t, []byte{ESC, '@'}, d.Bytes())

	d.Cut()
	assert.True(t, bytes.HasSuffix(d.Bytes(), []byte{GS, 'V', 0x00}))
}

func TestKeyValueAlignsRight(t *testing.T) {
	d := NewDocument(20)
	d.KeyValue("Total", "1,250.00")
	d.KeyValue("A very long label that overflows", "9.00")

	got := lines(t, d.Bytes())
	require.Len(t, got, 2)
	assert.Equal(t, "Total       1,250.00", got[0])
	assert.Len(t, got[1], 20)
	assert.True(t, strings.HasSuffix(got[1], " 9.00"))
	assert.True(t, strings.HasPrefix(got[1], "A very long"))
}

func TestLineItemWraps(t *testing.T) {
	d := NewDocument(24)
	d.LineItem("Complete Blood Count with Platelet Count", "450.00")

	got := lines(t, d.Bytes())
	require.GreaterOrEqual(t, len(got), 2)
	for _, l := range got {
		assert.LessOrEqual(t, len(l), 24, l)
	}
	last := got[len(got)-1]
	assert.True(t, strings.HasSuffix(last, "450.00"))
	assert.True(t, strings.HasPrefix(last, "  "))
}

func TestLineItemUnbrokenName(t *testing.T) {
	d := NewDocument(16)
	d.LineItem("HEMOGLOBINA1CGLYCATED", "99.00")

	got := lines(t, d.Bytes())
	require.GreaterOrEqual(t, len(got), 2)
	assert.True(t, strings.HasSuffix(got[len(got)-1], "99.00"))
}

func TestSeparator(t *testing.T) {
	d := NewDocument(Width80mm)
	d.Separator('-')
	assert.Equal(t, []string{strings.Repeat("-", Width80mm)}, lines(t, d.Bytes()))
}

func TestNullPrinterKeepsLastJob(t *testing.T) {
	p := NewNullPrinter()
	require.NoError(t, p.Print([]byte("one")))
	require.NoError(t, p.Print([]byte("two")))

	last, jobs := p.LastJob()
	assert.Equal(t, []byte("two"), last)
	assert.Equal(t, 2, jobs)
	assert.False(t, p.IsConnected())
	assert.Equal(t, "none", p.Kind())
}

func TestNewSelectsPrinter(t *testing.T) {
	p, err := New(Config{Type: "none"})
	require.NoError(t, err)
	assert.Equal(t, "none", p.Kind())

	p, err = New(Config{Type: "network", Address: "127.0.0.1:9100"})
	require.NoError(t, err)
	assert.Equal(t, "network", p.Kind())

	_, err = New(Config{Type: "usb"})
	assert.Error(t, err)
	_, err = New(Config{Type: "bluetooth"})
	assert.Error(t, err)
}
