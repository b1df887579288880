package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_Connect(t *testing.T) {
	s := NewSession()
	assert.Equal(t, "", s.Address())

	var got []string
	s.Subscribe(func(address string) {
		got = append(got, address)
	})

	s.Connect(" 0xabc ")
	assert.Equal(t, "0xabc", s.Address())
	s.Connect("0xabc") // unchanged, no notification
	s.Connect("0xdef")
	s.Disconnect()
	s.Disconnect()

	assert.Equal(t, []string{"0xabc", "0xdef", ""}, got)
}

func TestSession_Unsubscribe(t *testing.T) {
	s := NewSession()
	var a, b int
	unsubA := s.Subscribe(func(string) { a++ })
	s.Subscribe(func(string) { b++ })

	s.Connect("0x1")
	unsubA()
	unsubA()
	s.Connect("0x2")

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}
