package hiddesc

// Item type codes, bits 2-3 of a short item prefix byte.
const (
	itemTypeMain uint8 = iota
	itemTypeGlobal
	itemTypeLocal
	itemTypeReserved
)

// Main item tags.
const (
	tagInput         uint8 = 0x08
	tagOutput        uint8 = 0x09
	tagCollection    uint8 = 0x0A
	tagFeature       uint8 = 0x0B
	tagEndCollection uint8 = 0x0C
)

// Global item tags.
const (
	tagUsagePage uint8 = iota
	tagLogicalMinimum
	tagLogicalMaximum
	tagPhysicalMinimum
	tagPhysicalMaximum
	tagUnitExponent
	tagUnit
	tagReportSize
	tagReportID
	tagReportCount
	tagPush
	tagPop
)

// Local item tags.
const (
	tagUsage uint8 = iota
	tagUsageMinimum
	tagUsageMaximum
)

// longItemPrefix marks a long item. Long items carry a one-byte data length
// and a one-byte tag; their data is skipped.
const longItemPrefix = 0xFE

// longItemSize is reported in Item.Size for long items instead of 0/1/2/4.
const longItemSize = 0xFF

// Item is a single decoded report descriptor item. The payload is
// zero-extended to 32 bits; signed interpretation is up to the consumer.
type Item struct {
	Size  uint8
	Type  uint8
	Tag   uint8
	Value uint32
}

// readItem decodes the item starting at pos and returns it together with
// the position of the next item. Truncated items never read past the end
// of data: a declared payload longer than the remaining bytes is clamped.
// At end-of-input a zero Item is returned and the position does not move.
func readItem(data []byte, pos int) (Item, int) {
	if pos >= len(data) {
		return Item{}, pos
	}
	prefix := data[pos]
	pos++
	if prefix == longItemPrefix {
		it := Item{Size: longItemSize, Type: itemTypeReserved, Tag: longItemPrefix}
		if pos+2 > len(data) {
			return it, len(data)
		}
		dataLen := int(data[pos])
		it.Tag = data[pos+1]
		pos += 2
		if pos+dataLen > len(data) {
			return it, len(data)
		}
		return it, pos + dataLen
	}
	it := Item{
		Size: prefix & 0x03,
		Type: (prefix >> 2) & 0x03,
		Tag:  (prefix >> 4) & 0x0F,
	}
	if it.Size == 3 {
		it.Size = 4
	}
	for i := 0; i < int(it.Size) && pos < len(data); i++ {
		it.Value |= uint32(data[pos]) << (8 * i)
		pos++
	}
	return it, pos
}

// signExtend interprets v as a signed little-endian value of size bytes.
// Zero-size items yield zero.
func signExtend(v uint32, size uint8) int32 {
	switch size {
	case 1:
		return int32(int8(v))
	case 2:
		return int32(int16(v))
	default:
		return int32(v)
	}
}
