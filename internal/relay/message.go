package relay

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// Message - immutable text received from a single connection.
type Message struct {
	from   ConnID
	sender string
	body   []byte
}

// NewServerMessage - builds message originated by the relay itself.
func NewServerMessage(text string) Message {
	return Message{from: ServerID, sender: serverLabel, body: []byte(text)}
}

// From - returns id of originating connection.
func (m Message) From() ConnID { return m.from }

// Sender - returns human-readable label of the sender.
func (m Message) Sender() string { return m.sender }

// Text - returns message body.
func (m Message) Text() string { return string(m.body) }

// Len - returns body length in bytes.
func (m Message) Len() int { return len(m.body) }

// Bytes - renders message as it is sent over the wire: "<sender>: <body>\n".
func (m Message) Bytes() []byte {
	b := make([]byte, 0, len(m.sender)+len(m.body)+3)
	b = append(b, m.sender...)
	b = append(b, ':', ' ')
	b = append(b, m.body...)
	return append(b, '\n')
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.sender, m.body)
}

// Decoder - turns bounded reads of one connection into messages.
// A UTF-8 sequence split by the read boundary is carried over to the next Decode call.
type Decoder struct {
	from   ConnID
	sender string
	carry  []byte
}

// NewDecoder - builds decoder for messages of the given connection.
func NewDecoder(from ConnID, sender string) *Decoder {
	return &Decoder{from: from, sender: sender}
}

// Decode - decodes first n bytes of buf, never looking past them.
// One trailing line break is removed. The resulting message may be empty,
// such message has nothing to relay.
func (d *Decoder) Decode(buf []byte, n int) (Message, error) {
	if n < 0 || n > len(buf) {
		return Message{}, fmt.Errorf("%w: declared length %d, buffer %d", ErrMalformedMessage, n, len(buf))
	}
	data := make([]byte, 0, len(d.carry)+n)
	data = append(data, d.carry...)
	data = append(data, buf[:n]...)
	d.carry = d.carry[:0]

	if i := incompleteTail(data); i < len(data) {
		d.carry = append(d.carry, data[i:]...)
		data = data[:i]
	}
	if !utf8.Valid(data) {
		return Message{}, fmt.Errorf("%w: invalid UTF-8", ErrMalformedMessage)
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	return Message{from: d.from, sender: d.sender, body: data}, nil
}

// Pending - returns the number of bytes carried over to the next Decode call.
func (d *Decoder) Pending() int {
	return len(d.carry)
}

// incompleteTail - returns index of the trailing incomplete UTF-8 sequence,
// or len(p) if p does not end with one.
func incompleteTail(p []byte) int {
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(p[i]) {
			continue
		}
		if !utf8.FullRune(p[i:]) {
			return i
		}
		break
	}
	return len(p)
}
