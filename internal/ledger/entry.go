package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Status is the lifecycle state of a fragment identity.
type Status uint8

const (
	Pending Status = iota
	Transformed
	Skipped
	Failed
)

var statusNames = [...]string{
	Pending:     "pending",
	Transformed: "transformed",
	Skipped:     "skipped",
	Failed:      "failed",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", s)
}

// MarshalText lets reports render statuses by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// EncodeMsgpack keeps the log encoding numeric; the text form is for reports.
func (s Status) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeUint8(uint8(s))
}

func (s *Status) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	*s = Status(v)
	return nil
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, name) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == Transformed || s == Skipped
}

// CanTransition reports whether an identity in state from may be recorded as to.
func CanTransition(from, to Status) bool {
	switch from {
	case Pending:
		return true
	case Failed:
		return to == Failed || to == Skipped || to == Transformed
	default:
		return false
	}
}

// Entry is the recorded state of one fragment identity.
type Entry struct {
	ID      string `msgpack:"id"`
	Slot    string `msgpack:"slot"`
	Path    string `msgpack:"path"`
	Pattern string `msgpack:"pattern"`
	Status  Status `msgpack:"status"`
	Reason  string `msgpack:"reason,omitempty"`

	Created time.Time `msgpack:"created"`
	Updated time.Time `msgpack:"updated"`

	Superseded       bool   `msgpack:"superseded,omitempty"`
	SupersededReason string `msgpack:"superseded_reason,omitempty"`
}

// Active reports whether the entry still describes the current code.
func (e Entry) Active() bool {
	return !e.Superseded
}

func (e Entry) validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidEntry)
	}
	if e.Status > Failed {
		return fmt.Errorf("%w: %s has unknown status %d", ErrInvalidEntry, e.ID, e.Status)
	}
	if (e.Status == Failed || e.Status == Skipped) && strings.TrimSpace(e.Reason) == "" {
		return fmt.Errorf("%w: %s is %s without a reason", ErrInvalidEntry, e.ID, e.Status)
	}
	return nil
}
