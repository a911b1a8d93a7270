package domain

import (
	"github.com/google/uuid"

	dErrors "campaign/pkg/domain-errors"
)

// Typed identifiers keep a recipient id from being passed where a job id is
// expected. All of them are non-nil UUIDs at trust boundaries.
type (
	DocumentID  uuid.UUID
	RecipientID uuid.UUID
	JobID       uuid.UUID
	SplitTestID uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID("document id", s)
	return DocumentID(u), err
}

func ParseRecipientID(s string) (RecipientID, error) {
	u, err := parseUUID("recipient id", s)
	return RecipientID(u), err
}

func ParseJobID(s string) (JobID, error) {
	u, err := parseUUID("job id", s)
	return JobID(u), err
}

func ParseSplitTestID(s string) (SplitTestID, error) {
	u, err := parseUUID("split test id", s)
	return SplitTestID(u), err
}

func NewDocumentID() DocumentID   { return DocumentID(uuid.New()) }
func NewRecipientID() RecipientID { return RecipientID(uuid.New()) }
func NewJobID() JobID             { return JobID(uuid.New()) }
func NewSplitTestID() SplitTestID { return SplitTestID(uuid.New()) }

func (id DocumentID) String() string  { return uuid.UUID(id).String() }
func (id RecipientID) String() string { return uuid.UUID(id).String() }
func (id JobID) String() string       { return uuid.UUID(id).String() }
func (id SplitTestID) String() string { return uuid.UUID(id).String() }

func (id DocumentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RecipientID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id JobID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SplitTestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed ids travel through JSON and msgpack as plain strings.
func (id DocumentID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id RecipientID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id JobID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id SplitTestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DocumentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = DocumentID(u)
	return err
}

func (id *RecipientID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = RecipientID(u)
	return err
}

func (id *JobID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = JobID(u)
	return err
}

func (id *SplitTestID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = SplitTestID(u)
	return err
}
