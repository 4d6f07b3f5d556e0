package ikey

import (
	"slatekv/utils"
	"slatekv/utils/cmp"
	"slatekv/utils/errs"
)

// Comparator orders internal keys by user key (via the wrapped user
// comparator) and breaks ties by decreasing tag, so the newest record for
// a user key sorts first.
type Comparator struct {
	user cmp.Comparator
}

func NewComparator(user cmp.Comparator) *Comparator {
	return &Comparator{user: user}
}

// UserComparator returns the wrapped user-key comparator.
func (icmp *Comparator) UserComparator() cmp.Comparator {
	return icmp.user
}

func (icmp *Comparator) Name() string {
	return "slatekv.InternalKeyComparator"
}

func (icmp *Comparator) Compare(a, b []byte) int {
	r := icmp.user.Compare(ExtractUserKey(a), ExtractUserKey(b))
	if r != 0 {
		return r
	}
	// Decreasing tag: larger sequence (then larger type) sorts first.
	anum := ExtractTag(a)
	bnum := ExtractTag(b)
	if anum > bnum {
		return -1
	} else if anum < bnum {
		return 1
	}
	return 0
}

func (icmp *Comparator) FindShortestSeparator(start, limit []byte) []byte {
	// Shorten the user-key portion, then restore a full seek tag.
	userStart := ExtractUserKey(start)
	userLimit := ExtractUserKey(limit)
	tmp := icmp.user.FindShortestSeparator(append([]byte{}, userStart...), userLimit)
	if len(tmp) < len(userStart) && icmp.user.Compare(userStart, tmp) < 0 {
		// A physically shorter user key that still orders after userStart.
		// The earliest possible tag keeps it before any record of the
		// separator's own user key.
		tmp = append(tmp, utils.U64ToBytes(PackSeqAndType(MaxSequenceNumber, TypeForSeek))...)
		errs.AssertTrue(icmp.Compare(start, tmp) < 0)
		errs.AssertTrue(icmp.Compare(tmp, limit) < 0)
		return tmp
	}
	return start
}

func (icmp *Comparator) FindShortSuccessor(key []byte) []byte {
	userKey := ExtractUserKey(key)
	tmp := icmp.user.FindShortSuccessor(append([]byte{}, userKey...))
	if len(tmp) < len(userKey) && icmp.user.Compare(userKey, tmp) < 0 {
		tmp = append(tmp, utils.U64ToBytes(PackSeqAndType(MaxSequenceNumber, TypeForSeek))...)
		errs.AssertTrue(icmp.Compare(key, tmp) < 0)
		return tmp
	}
	return key
}
