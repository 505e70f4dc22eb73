package model

type RoomCode string

const EmptyRoomCode RoomCode = ""

func (c RoomCode) String() string {
	return string(c)
}

// MemberInfo is stored per userId in the room membership hash.
// It is a liveness index, not an ownership record.
type MemberInfo struct {
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
	JoinedAt     int64  `json:"joinedAt"`
}
