package main

import (
	"testing"

	"github.com/denbot/den/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestTicketLogLine(t *testing.T) {
	ticket := &entities.Ticket{Number: 7, RequesterName: "alice"}

	require.Equal(t, "Ticket #7 (alice) closed by <@staff-1>.", ticketLogLine("closed", ticket, "staff-1"))
	require.Equal(t, "Ticket #7 (alice) deleted by <@admin-1>.", ticketLogLine("deleted", ticket, "admin-1"))
}
