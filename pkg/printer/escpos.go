package printer

import (
	"bytes"
	"fmt"
	"strings"
)

// ESC/POS command bytes
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

const (
	FontNormal = 0x00
	FontDouble = 0x11
	FontWide   = 0x10
	FontTall   = 0x01
)

// Paper widths in characters
const (
	Width58mm = 32
	Width80mm = 48
)

// Document builds an ESC/POS byte stream.
type Document struct {
	buf   bytes.Buffer
	width int
}

// NewDocument creates a document for the given character width.
func NewDocument(charWidth int) *Document {
	if charWidth <= 0 {
		charWidth = Width58mm
	}
	d := &Document{width: charWidth}
	d.Init()
	return d
}

// Width returns the line width in characters.
func (d *Document) Width() int { return d.width }

// Init writes ESC @.
func (d *Document) Init() *Document {
	d.buf.Write([]byte{ESC, '@'})
	return d
}

func (d *Document) FeedLines(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(LF)
	}
	return d
}

func (d *Document) SetAlign(align int) *Document {
	d.buf.Write([]byte{ESC, 'a', byte(align)})
	return d
}

func (d *Document) SetBold(on bool) *Document {
	b := byte(0)
	if on {
		b = 1
	}
	d.buf.Write([]byte{ESC, 'E', b})
	return d
}

func (d *Document) SetFontSize(size byte) *Document {
	d.buf.Write([]byte{GS, '!', size})
	return d
}

// Text writes s followed by a line feed.
func (d *Document) Text(s string) *Document {
	d.buf.WriteString(s)
	d.buf.WriteByte(LF)
	return d
}

func (d *Document) TextF(format string, args ...interface{}) *Document {
	return d.Text(fmt.Sprintf(format, args...))
}

// Heading prints a centered, bold, double-size line and restores normal text.
func (d *Document) Heading(s string) *Document {
	return d.SetAlign(AlignCenter).SetBold(true).SetFontSize(FontDouble).
		Text(s).
		SetFontSize(FontNormal).SetBold(false).SetAlign(AlignLeft)
}

// Centered prints a centered normal line.
func (d *Document) Centered(s string) *Document {
	return d.SetAlign(AlignCenter).Text(s).SetAlign(AlignLeft)
}

func (d *Document) Separator(char byte) *Document {
	d.buf.WriteString(strings.Repeat(string(char), d.width))
	d.buf.WriteByte(LF)
	return d
}

// KeyValue prints key left-aligned and value right-aligned on one line.
// A key too long for the line is truncated so the value stays visible.
func (d *Document) KeyValue(key, value string) *Document {
	room := d.width - len(value) - 1
	if room < 1 {
		room = 1
	}
	key = truncate(key, room)
	spaces := d.width - len(key) - len(value)
	if spaces < 1 {
		spaces = 1
	}
	d.buf.WriteString(key)
	d.buf.WriteString(strings.Repeat(" ", spaces))
	d.buf.WriteString(value)
	d.buf.WriteByte(LF)
	return d
}

// LineItem prints a lab test name with its price. Long names wrap onto
// continuation lines; the price goes on the last one.
func (d *Document) LineItem(name, amount string) *Document {
	room := d.width - len(amount) - 1
	if room < 8 {
		room = 8
	}
	for len(name) > room {
		// index 2 is the continuation indent
		cut := strings.LastIndex(name[:room], " ")
		if cut <= 2 {
			cut = room
		}
		d.Text(strings.TrimSpace(name[:cut]))
		name = "  " + strings.TrimSpace(name[cut:])
	}
	return d.KeyValue(name, amount)
}

func (d *Document) Cut() *Document {
	d.buf.Write([]byte{GS, 'V', 0x00})
	return d
}

func (d *Document) PartialCut() *Document {
	d.buf.Write([]byte{GS, 'V', 0x01})
	return d
}

// Bytes returns the accumulated byte stream.
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "."
}
