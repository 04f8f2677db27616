package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagewise/internal/domain"
)

func TestEncodeUsesProtocolFieldNames(t *testing.T) {
	data, err := Encode(FindNew("cat", domain.DefaultFindOptions()))
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"cmd":"find-new"`)
	assert.Contains(t, s, `"query":"cat"`)
	assert.Contains(t, s, `"highlightAll":true`)
	assert.Contains(t, s, `"phraseSearch":true`)
	assert.Contains(t, s, `"caseSensitive":false`)
}

func TestDecodeRejectsUnknownCommands(t *testing.T) {
	_, err := Decode([]byte(`{"cmd":"rotate-page","payload":{}}`))
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Encode(Message{Cmd: "nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)
}

func TestDecodeSearchResults(t *testing.T) {
	msg, err := Decode([]byte(`{"cmd":"search-results","payload":{"query":"cat","current":2,"total":3}}`))
	require.NoError(t, err)
	assert.Equal(t, SearchResults("cat", 2, 3), msg)
}

func TestNormalizeFindPrev(t *testing.T) {
	msg := Message{Cmd: CmdFindPrev, Payload: Payload{Query: "cat"}}.Normalize()
	assert.Equal(t, CmdFindNext, msg.Cmd)
	assert.True(t, msg.Payload.Prev)

	next := FindAgain("cat", false, domain.FindOptions{})
	assert.Equal(t, next, next.Normalize())
}
