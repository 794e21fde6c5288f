package message

// This file provides the common data objects used by the rest of the
// program.

import (
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by a message source when the remote system
// reports that a message does not exist (deleted, or inaccessible to
// the authenticated account).  Callers treat it as a skippable
// condition, not a failure.
var ErrNotFound = errors.New("message not found")

// Label identifies a mailbox label owned by one user in one domain.
// Within a user's label set the display name is unique.
type Label struct {
	// The user the label belongs to.
	UserID string

	// The organizational domain the user belongs to.
	Domain string

	// The user visible display name.  This is the deduplication
	// key; it is not the remote label identifier.
	Name string
}

// Message is a synchronized mailbox message.  Instances are built
// once from a raw API record and never mutated afterwards.
type Message struct {
	To      string
	From    string
	SentAt  time.Time
	Subject string
	Snippet string

	// The permanent and unique ID of the message in the remote
	// system.
	ID string

	// The permanent and unique ID of the thread associated with
	// the message.
	ThreadID string

	// An identifier naming the snapshot in time at which this
	// record was taken.  The maximum observed value becomes the
	// user's history watermark.
	HistoryID uint64

	// The user the message belongs to.
	UserID string

	// The labels attached to the message.  Every label belongs to
	// the same user as the message itself.
	Labels []*Label
}

// History is a user's high-water history marker.  A fresh record is
// computed at the end of every synchronization run; merging it with
// any previously persisted marker is the subscriber's concern.
type History struct {
	UserID    string
	HistoryID uint64
}

// Raw is a raw message record as returned by the remote mailbox API,
// prior to transformation into a Message.
type Raw struct {
	To      string
	From    string
	SentAt  time.Time
	Subject string
	Snippet string

	ID        string
	ThreadID  string
	HistoryID uint64

	// The remote label identifiers attached to the message.
	// These are not the user visible label names.
	LabelIDs []string
}

// RawLabel is one entry of the remote label listing.
type RawLabel struct {
	ID   string
	Name string
}

// HistoryDelta is one unit of the remote change feed.  It references
// the messages affected by the change; the same message may appear in
// several deltas of one feed.
type HistoryDelta struct {
	MessageIDs []string
}
