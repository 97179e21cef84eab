package messages

const (
	// ErrUserErrorProcessing is the generic reply when an interaction fails.
	ErrUserErrorProcessing = "Something went wrong processing that, please try again."

	// TicketingDisabled is the reply when ticket creation is disabled.
	TicketingDisabled = "Ticketing is currently disabled on this server."

	// DuplicateTicket is the reply when the user already has an open ticket.
	DuplicateTicket = "You already have an open ticket: <#%s>"

	// CategoryUnavailable is the reply when the chosen category cannot take
	// new tickets.
	CategoryUnavailable = "That category is not available right now."

	// TicketCreated is the reply when a ticket has been created.
	TicketCreated = "Your ticket has been created: <#%s>"

	// NotATicketChannel is the reply when a ticket command is used outside a
	// ticket channel.
	NotATicketChannel = "This is not a ticket channel."

	// MissingStaffPermission is the reply when a staff-only action is
	// attempted without the support role.
	MissingStaffPermission = "You need the support role to do that."

	// MissingAdminPermission is the reply when an admin-only action is
	// attempted without administrator permissions.
	MissingAdminPermission = "You must be an administrator to use this command."

	// WizardTimedOut is the reply when a configuration step expires.
	WizardTimedOut = "Timed out waiting for a response, cancelled."

	// WizardCancelled is the reply when a configuration step is cancelled.
	WizardCancelled = "Cancelled."

	// PromptExpired is the reply when a component is used after its prompt
	// stopped waiting.
	PromptExpired = "This prompt is no longer active."

	// DefaultWelcomeMessage is posted into new ticket channels when the
	// category has no welcome template.
	DefaultWelcomeMessage = `Your ticket has been created.
Please provide any additional info you deem relevant to help us answer faster.`

	// DefaultCloseMessage is posted into ticket channels on close when the
	// category has no close template.
	DefaultCloseMessage = "This ticket has been closed. A staff member can reopen it if needed."

	// DeletedTicketNotice is sent to the requester when staff delete their
	// ticket channel.
	DeletedTicketNotice = "Your ticket #%d has been deleted by staff. The conversation channel has been removed."
)
