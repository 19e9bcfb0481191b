package iocli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdio(t *testing.T) {
	assert.NotNil(t, NewStdio())
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := New(strings.NewReader(""), &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")

	assert.Equal(t, "hello world\ntest 1 abc", out.String())
}

func TestReadInput(t *testing.T) {
	var out bytes.Buffer
	stdio := New(strings.NewReader("admin@zenga.com\nsecond\n"), &out)

	first, err := stdio.ReadInput("Email: ")
	require.NoError(t, err)
	assert.Equal(t, "admin@zenga.com", first)
	assert.Equal(t, "Email: ", out.String())

	second, err := stdio.ReadInput("Next: ")
	require.NoError(t, err)
	assert.Equal(t, "second", second)
}

func TestReadInput_LastLineWithoutNewline(t *testing.T) {
	stdio := New(strings.NewReader("tail"), io.Discard)

	got, err := stdio.ReadInput("> ")
	require.NoError(t, err)
	assert.Equal(t, "tail", got)

	_, err = stdio.ReadInput("> ")
	assert.ErrorIs(t, err, io.EOF)
}

// Не терминал: пароль читается как строка, пробелы внутри сохраняются
func TestReadPassword_NotTerminal(t *testing.T) {
	var out bytes.Buffer
	stdio := New(strings.NewReader(" pass word \r\n"), &out)

	got, err := stdio.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, " pass word ", got)
	assert.Equal(t, "Password: ", out.String())
}

func TestReadPassword_EOF(t *testing.T) {
	stdio := New(strings.NewReader(""), io.Discard)

	_, err := stdio.ReadPassword("Password: ")
	assert.ErrorIs(t, err, io.EOF)
}
