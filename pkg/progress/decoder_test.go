package progress

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_PartialLines(t *testing.T) {
	var d Decoder

	events, err := d.Feed([]byte(`{"status":"Context laden","progress":5}` + "\n" + `{"status":"Onder`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 5, events[0].Progress)
	assert.Greater(t, d.Pending(), 0)

	events, err = d.Feed([]byte(`zoek","progress":20}` + "\n"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Onderzoek", events[0].Status)
	assert.Equal(t, 0, d.Pending())

	events, err = d.Feed([]byte(`{"status":"complete","progress":100,"success":true,"title":"Koffie"}`))
	require.NoError(t, err)
	assert.Empty(t, events)

	last, err := d.Flush()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Terminal())
	require.NotNil(t, last.Result)
	assert.Equal(t, "Koffie", last.Title)
	assert.True(t, last.Success)
}

func TestDecoder_MalformedLineSkipped(t *testing.T) {
	var d Decoder
	events, err := d.Feed([]byte("not json\n\n{\"status\":\"ok\",\"progress\":30}\n"))
	assert.Error(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 30, events[0].Progress)
	assert.Nil(t, events[0].Result)
}

func TestReadAll_OneByteReads(t *testing.T) {
	stream := `{"status":"a","progress":5}` + "\n" +
		`{"status":"b","progress":35,"heartbeat":true}` + "\n" +
		`{"status":"error","progress":35,"error":"boom","success":false}`

	var got []Event
	err := ReadAll(iotest.OneByteReader(strings.NewReader(stream)), func(e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[1].Heartbeat)
	assert.Equal(t, "boom", got[2].Error)
	assert.True(t, got[2].Terminal())
}

func TestReadAll_StopsOnCallbackError(t *testing.T) {
	stream := `{"status":"a","progress":5}` + "\n" + `{"status":"b","progress":6}` + "\n"
	calls := 0
	err := ReadAll(strings.NewReader(stream), func(e Event) error {
		calls++
		return io.ErrShortWrite
	})
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, 1, calls)
}
