package extract

// mailboxCapacity holds the status marker and the payload of one session.
const mailboxCapacity = 2

// Mailbox is a single-producer, single-consumer FIFO between a worker and the
// caller. Neither Put nor TryReceive ever blocks.
type Mailbox struct {
	ch chan Message
}

// NewMailbox creates an empty mailbox for one session.
func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan Message, mailboxCapacity)}
}

// Put appends msg, or returns ErrMailboxFull.
func (m *Mailbox) Put(msg Message) error {
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrMailboxFull
	}
}

// TryReceive removes and returns the oldest message, or ErrEmpty.
func (m *Mailbox) TryReceive() (Message, error) {
	select {
	case msg := <-m.ch:
		return msg, nil
	default:
		return Message{}, ErrEmpty
	}
}

// Len returns the number of unread messages.
func (m *Mailbox) Len() int {
	return len(m.ch)
}
