package core

import "encoding/binary"

// LogMark names a byte position in the journal stream: the journal file
// (by id) and the offset within it. The zero value (0,0) means "nothing
// durable yet". LogMarks are totally ordered lexicographically on
// (LogID, Offset).
type LogMark struct {
	LogID  uint64
	Offset uint64
}

// IsZero reports whether m is the zero mark.
func (m LogMark) IsZero() bool {
	return m.LogID == 0 && m.Offset == 0
}

// Compare returns -1, 0 or 1 as m is less than, equal to, or greater than
// other, under the (LogID, Offset) lexicographic order.
func (m LogMark) Compare(other LogMark) int {
	switch {
	case m.LogID < other.LogID:
		return -1
	case m.LogID > other.LogID:
		return 1
	case m.Offset < other.Offset:
		return -1
	case m.Offset > other.Offset:
		return 1
	default:
		return 0
	}
}

// Less reports whether m sorts before other.
func (m LogMark) Less(other LogMark) bool {
	return m.Compare(other) < 0
}

// MarshalBinary encodes m as 16 bytes big-endian: [LogID][Offset].
func (m LogMark) MarshalBinary() []byte {
	buf := make([]byte, LogMarkSize)
	binary.BigEndian.PutUint64(buf[0:8], m.LogID)
	binary.BigEndian.PutUint64(buf[8:16], m.Offset)
	return buf
}

// UnmarshalLogMark decodes a 16-byte big-endian buffer into a LogMark. It
// returns false if buf is shorter than LogMarkSize.
func UnmarshalLogMark(buf []byte) (LogMark, bool) {
	if len(buf) < LogMarkSize {
		return LogMark{}, false
	}
	return LogMark{
		LogID:  binary.BigEndian.Uint64(buf[0:8]),
		Offset: binary.BigEndian.Uint64(buf[8:16]),
	}, true
}
