// internal/app/features/chats/channel.go
package chats

import (
	"github.com/clanforge/clanhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// State of one open conversation view.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
	StateUnauthorized // terminal
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnauthorized:
		return "unauthorized"
	default:
		return "unauthenticated"
	}
}

// Frame types sent to the client.
const (
	FrameState        = "state"
	FrameConversation = "conversation"
	FrameMessages     = "messages"
	FrameRedirect     = "redirect"
	FrameSent         = "sent"
	FrameError        = "error"
	FrameDirectory    = "directory"
)

// DirectoryPath is where an unauthorized viewer is sent.
const DirectoryPath = "/chats"

// Frame is one JSON message on a live connection.
type Frame struct {
	Type           string               `json:"type"`
	State          string               `json:"state,omitempty"`
	Conversation   *models.Conversation `json:"conversation,omitempty"`
	Messages       *[]models.Message    `json:"messages,omitempty"` // set on every messages frame, possibly empty
	ScrollToLatest bool                 `json:"scroll_to_latest,omitempty"`
	Message        *models.Message      `json:"message,omitempty"`
	Items          *[]DirectoryItem     `json:"items,omitempty"`
	To             string               `json:"to,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// Channel is the state machine behind one conversation view. It is not
// safe for concurrent use; the connection loop owns it.
//
// Messages are never released to the viewer before the conversation
// document has shown that the viewer is a participant or an administrator.
// A message snapshot that arrives first is held and released together with
// the transition to ready.
type Channel struct {
	convID string
	viewer primitive.ObjectID
	admin  bool

	state      State
	authorized bool
	delivered  bool // a message snapshot has been seen
	held       []models.Message
	messages   []models.Message
}

// NewChannel starts in StateUnauthenticated.
func NewChannel(convID string) *Channel {
	return &Channel{convID: convID}
}

func (c *Channel) State() State { return c.state }
func (c *Channel) Messages() []models.Message { return c.messages }
func (c *Channel) ConversationID() string { return c.convID }
func (c *Channel) Authorized() bool { return c.authorized }
func (c *Channel) Terminal() bool { return c.state == StateUnauthorized }
func stateFrame(s State) Frame { return Frame{Type: FrameState, State: s.String()} }

// Identify applies the resolved identity. A nil viewer keeps the channel
// unauthenticated; a signed-in viewer moves it to loading, at which point
// the caller opens both subscriptions.
func (c *Channel) Identify(viewer *primitive.ObjectID, admin bool) []Frame {
	if c.state != StateUnauthenticated {
		return nil
	}
	if viewer == nil {
		return []Frame{stateFrame(StateUnauthenticated)}
	}
	c.viewer = *viewer
	c.admin = admin
	c.state = StateLoading
	return []Frame{stateFrame(StateLoading)}
}

// ConversationDelivered applies a snapshot of the conversation document.
// A missing document, an error, or a viewer who is neither participant nor
// administrator ends the channel with a redirect to the directory.
func (c *Channel) ConversationDelivered(conv *models.Conversation, err error) []Frame {
	if c.state == StateUnauthenticated || c.Terminal() {
		return nil
	}
	if err != nil || conv == nil || !(c.admin || conv.HasParticipant(c.viewer)) {
		c.state = StateUnauthorized
		c.authorized = false
		c.held, c.messages = nil, nil
		return []Frame{
			stateFrame(StateUnauthorized),
			{Type: FrameRedirect, To: DirectoryPath},
		}
	}

	out := []Frame{{Type: FrameConversation, Conversation: conv}}
	if !c.authorized {
		c.authorized = true
		if c.delivered {
			c.messages, c.held = c.held, nil
			c.state = StateReady
			out = append(out,
				stateFrame(StateReady),
				messagesFrame(c.messages, false),
			)
		}
	}
	return out
}

// MessagesDelivered applies a snapshot of the message sequence. The first
// snapshot moves the channel to ready; later ones replace the sequence and
// ask the client to scroll to the newest message.
func (c *Channel) MessagesDelivered(msgs []models.Message) []Frame {
	if c.state == StateUnauthenticated || c.Terminal() {
		return nil
	}
	first := !c.delivered
	c.delivered = true

	if !c.authorized {
		c.held = msgs
		return nil
	}

	c.messages = msgs
	if first {
		c.state = StateReady
		return []Frame{
			stateFrame(StateReady),
			messagesFrame(msgs, false),
		}
	}
	return []Frame{messagesFrame(msgs, true)}
}

func messagesFrame(m []models.Message, scroll bool) Frame {
	if m == nil {
		m = []models.Message{}
	}
	return Frame{Type: FrameMessages, Messages: &m, ScrollToLatest: scroll}
}
