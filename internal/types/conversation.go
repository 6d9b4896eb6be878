package types

import "time"

// Participant purposes as reported by the conversation detail API
const (
	PurposeCustomer = "customer"
	PurposeExternal = "external"
	PurposeAgent    = "agent"
	PurposeUser     = "user"
	PurposeACD      = "acd"
)

// Segment types relevant to outcome classification
const (
	SegmentInteract      = "interact"
	SegmentTalk          = "talk"
	SegmentHold          = "hold"
	SegmentAfterCallWork = "afterCallWork"
	SegmentAlert         = "alert"
)

// MediaVoice is the session media type carrying call audio
const MediaVoice = "voice"

// Conversation is one raw conversation detail record from the telephony
// platform. Fields not needed for classification are dropped at decode time.
type Conversation struct {
	ConversationID    string        `json:"conversationId"`
	ConversationStart time.Time     `json:"conversationStart"`
	Participants      []Participant `json:"participants"`
}

// Participant is one party on a conversation
type Participant struct {
	ParticipantID string    `json:"participantId"`
	Purpose       string    `json:"purpose"`
	UserID        string    `json:"userId,omitempty"`
	Sessions      []Session `json:"sessions,omitempty"`
}

// Session is one media leg of a participant
type Session struct {
	MediaType          string              `json:"mediaType"`
	ANI                string              `json:"ani,omitempty"`
	Remote             string              `json:"remote,omitempty"`
	DNIS               string              `json:"dnis,omitempty"`
	MediaEndpointStats []MediaEndpointStat `json:"mediaEndpointStats,omitempty"`
	Segments           []Segment           `json:"segments,omitempty"`
}

// MediaEndpointStat carries voice quality samples for a session
type MediaEndpointStat struct {
	MOS    float64 `json:"mos,omitempty"`
	MinMOS float64 `json:"minMos,omitempty"`
}

// Segment is one state interval within a session. SegmentEnd is nil for
// segments still open at query time.
type Segment struct {
	SegmentType  string     `json:"segmentType"`
	SegmentStart time.Time  `json:"segmentStart"`
	SegmentEnd   *time.Time `json:"segmentEnd,omitempty"`
	WrapUpCode   string     `json:"wrapUpCode,omitempty"`
	WrapUpName   string     `json:"wrapUpName,omitempty"`
}
