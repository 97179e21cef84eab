package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// Tickets are persisted by writing the whole document, so fields cleared on
// reopen must still appear in the marshalled form or the store keeps the
// previous closer, reason and timestamp.
func TestTicketMarshalsClearedCloseFields(t *testing.T) {
	ticket := &Ticket{
		Number:  1,
		GuildID: "guild-1",
		Status:  TicketOpen,
	}

	raw, err := bson.Marshal(ticket)
	require.NoError(t, err)

	doc := bson.M{}
	require.NoError(t, bson.Unmarshal(raw, &doc))

	for _, key := range []string{"closed_by", "close_reason", "closed_at"} {
		_, ok := doc[key]
		require.True(t, ok, "field %q missing from document", key)
	}
	require.Equal(t, "", doc["closed_by"])
	require.Equal(t, "", doc["close_reason"])
	require.Nil(t, doc["closed_at"])
}
