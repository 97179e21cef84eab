package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/denbot/den/pkg/dataaccess/monitoring"
	"github.com/denbot/den/pkg/entities"
	"github.com/denbot/den/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketDalName = "ticket_dal"

// TicketDal is the data access layer for tickets and the per-guild ticket
// number counter.
type TicketDal interface {
	// SaveTicket upserts a ticket by guild and number.
	SaveTicket(ctx context.Context, ticket *entities.Ticket) error

	// GetTicketByChannel gets the ticket backed by the given channel.
	// Returns ErrNotFound if the channel is not a ticket channel.
	GetTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error)

	// GetTicketByNumber gets a ticket by its per-guild number.
	GetTicketByNumber(ctx context.Context, guildID string, number int) (*entities.Ticket, error)

	// GetOpenTicketByRequester gets the requester's open ticket in the
	// guild, if any. Returns ErrNotFound when there is none.
	GetOpenTicketByRequester(ctx context.Context, guildID, requesterID string) (*entities.Ticket, error)

	// ListOpenTickets lists the guild's open tickets ordered by number.
	ListOpenTickets(ctx context.Context, guildID string) ([]*entities.Ticket, error)

	// NextTicketNumber allocates the next ticket number for the guild. The
	// allocation is a server-side atomic increment, so numbers are strictly
	// increasing and never reused even under concurrent creates.
	NextTicketNumber(ctx context.Context, guildID string) (int, error)
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(logger *slog.Logger) TicketDal {
	l := logger.With(slog.String(logging.KeyDal, ticketDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *ticketDal) SaveTicket(ctx context.Context, ticket *entities.Ticket) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx,
		bson.M{"guild_id": ticket.GuildID, "number": ticket.Number},
		bson.M{"$set": ticket}, opts)
	if err != nil {
		return fmt.Errorf("error updating ticket: %w", err)
	}
	return nil
}

func (d *ticketDal) GetTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_channel", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_ticket_by_channel", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID, "channel_id": channelID}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) GetTicketByNumber(ctx context.Context, guildID string, number int) (*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_number", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_ticket_by_number", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID, "number": number}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) GetOpenTicketByRequester(ctx context.Context, guildID, requesterID string) (*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_open_ticket_by_requester", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_open_ticket_by_requester", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, bson.M{
		"guild_id":     guildID,
		"requester_id": requesterID,
		"status":       entities.TicketOpen.String(),
	}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting open ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) ListOpenTickets(ctx context.Context, guildID string) ([]*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "list_open_tickets", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "list_open_tickets", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	opts := options.Find().SetSort(bson.M{"number": 1})
	cursor, err := collection.Find(ctx, bson.M{
		"guild_id": guildID,
		"status":   entities.TicketOpen.String(),
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing open tickets: %w", err)
	}

	var tickets []*entities.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}
	return tickets, nil
}

func (d *ticketDal) NextTicketNumber(ctx context.Context, guildID string) (int, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionCounters)

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "next_ticket_number", mongoDatabase, collectionCounters).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "next_ticket_number", mongoDatabase, collectionCounters))
	defer t.ObserveDuration()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		GuildID string `bson:"guild_id"`
		Value   int    `bson:"value"`
	}
	err := collection.FindOneAndUpdate(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$inc": bson.M{"value": 1}},
		opts).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("error allocating ticket number: %w", err)
	}
	return counter.Value, nil
}
