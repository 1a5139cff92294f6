package osp3

import "fmt"

// ChecksumPair holds the two 8-bit checksums of a log entry.
type ChecksumPair struct {
	TwosComplement uint8
	XOR            uint8
}

// ChecksumResult reports each checksum comparison separately.
type ChecksumResult struct {
	TwosComplement bool
	XOR            bool
}

// Match reports whether both checksums matched.
func (r ChecksumResult) Match() bool { return r.TwosComplement && r.XOR }

// ComputeChecksum computes both checksums over the bytes that precede the
// checksum fields. Only those bytes need to be present.
func ComputeChecksum(record []byte) (ChecksumPair, error) {
	if len(record) < ChecksumOffset {
		return ChecksumPair{}, fmt.Errorf("%w: record is %d bytes, need at least %d", ErrInvalidArgument, len(record), ChecksumOffset)
	}
	if len(record) > RecordSize {
		return ChecksumPair{}, fmt.Errorf("%w: record is %d bytes, want at most %d", ErrMalformedRecord, len(record), RecordSize)
	}
	var sum, xor uint8
	for _, b := range record[:ChecksumOffset] {
		sum += b
		xor ^= b
	}
	return ChecksumPair{TwosComplement: -sum, XOR: xor}, nil
}

// ChecksumTest compares pair against the checksums written in record.
func ChecksumTest(record []byte, pair ChecksumPair) (ChecksumResult, error) {
	claimed, err := claimedChecksum(record)
	if err != nil {
		return ChecksumResult{}, err
	}
	return ChecksumResult{
		TwosComplement: pair.TwosComplement == claimed.TwosComplement,
		XOR:            pair.XOR == claimed.XOR,
	}, nil
}

// VerifyChecksum computes the checksums of record and tests them against the
// ones it carries. The computed pair is returned in both cases; on mismatch
// the error is a *ChecksumError.
func VerifyChecksum(record []byte) (ChecksumPair, error) {
	claimed, err := claimedChecksum(record)
	if err != nil {
		return ChecksumPair{}, err
	}
	computed, err := ComputeChecksum(record)
	if err != nil {
		return ChecksumPair{}, err
	}
	res := ChecksumResult{
		TwosComplement: computed.TwosComplement == claimed.TwosComplement,
		XOR:            computed.XOR == claimed.XOR,
	}
	if !res.Match() {
		return computed, &ChecksumError{Computed: computed, Claimed: claimed, Result: res}
	}
	return computed, nil
}

func claimedChecksum(record []byte) (ChecksumPair, error) {
	body, err := recordBody(record)
	if err != nil {
		return ChecksumPair{}, err
	}
	var e LogEntry
	for _, f := range fields[FieldCount-2:] {
		v, err := parseDigits(body[f.off:f.off+f.width], f.base)
		if err != nil {
			return ChecksumPair{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, f.name, err)
		}
		f.set(&e, v)
	}
	return e.Checksum, nil
}
