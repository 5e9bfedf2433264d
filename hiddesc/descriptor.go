package hiddesc

// CollectionType is the one-byte collection code of a Collection main item.
type CollectionType uint8

const (
	CollectionTypePhysical CollectionType = iota
	CollectionTypeApplication
	CollectionTypeLogical
	CollectionTypeReport
	CollectionTypeNamedArray
	CollectionTypeUsageSwitch
	CollectionTypeUsageModifier
)

func (t CollectionType) String() string {
	switch t {
	case CollectionTypePhysical:
		return "Physical"
	case CollectionTypeApplication:
		return "Application"
	case CollectionTypeLogical:
		return "Logical"
	case CollectionTypeReport:
		return "Report"
	case CollectionTypeNamedArray:
		return "Named Array"
	case CollectionTypeUsageSwitch:
		return "Usage Switch"
	case CollectionTypeUsageModifier:
		return "Usage Modifier"
	default:
		return "Reserved"
	}
}

// FieldKind distinguishes the three main item kinds that produce fields.
type FieldKind uint8

const (
	FieldInput FieldKind = iota
	FieldOutput
	FieldFeature
)

func (k FieldKind) String() string {
	switch k {
	case FieldInput:
		return "Input"
	case FieldOutput:
		return "Output"
	case FieldFeature:
		return "Feature"
	default:
		return "Unknown"
	}
}

// FieldFlags is the raw data byte of an Input, Output or Feature item.
// Bit meanings:
//
//	0: Data(0)/Constant(1)
//	1: Array(0)/Variable(1)
//	2: Absolute(0)/Relative(1)
//	3: No Wrap(0)/Wrap(1)
//	4: Linear(0)/Non-linear(1)
//	5: Preferred(0)/No Preferred(1)
//	6: No Null position(0)/Null state(1)
//	7: Bitfield(0)/Buffered bytes(1) for Input, volatility otherwise
type FieldFlags uint8

func (f FieldFlags) IsConstant() bool      { return f&0x01 != 0 }
func (f FieldFlags) IsVariable() bool      { return f&0x02 != 0 }
func (f FieldFlags) IsArray() bool         { return !f.IsVariable() }
func (f FieldFlags) IsRelative() bool      { return f&0x04 != 0 }
func (f FieldFlags) IsWrap() bool          { return f&0x08 != 0 }
func (f FieldFlags) IsNonLinear() bool     { return f&0x10 != 0 }
func (f FieldFlags) IsNoPreferred() bool   { return f&0x20 != 0 }
func (f FieldFlags) IsNullState() bool     { return f&0x40 != 0 }
func (f FieldFlags) IsBufferedBytes() bool { return f&0x80 != 0 }

// ReportField describes one Input, Output or Feature item together with the
// global and local state in effect when it was declared. Fields are
// immutable after parsing.
type ReportField struct {
	Kind         FieldKind
	ReportID     uint8
	UsagePage    uint16
	Usages       []uint32
	SizeBits     uint32
	Count        uint32
	LogicalMin   int32
	LogicalMax   int32
	PhysicalMin  int32
	PhysicalMax  int32
	Unit         uint32
	UnitExponent int8
	Flags        FieldFlags
}

// ByteLength is the wire length of this field's data: the bit width rounded
// up to a whole byte. Rounding happens per field, before any summing across
// fields of a report.
func (f *ReportField) ByteLength() int {
	return (int(f.SizeBits)*int(f.Count) + 7) / 8
}

// CollectionNode is one collection in the descriptor tree. The root node is
// synthetic and represents the scope outside any declared collection; every
// other node corresponds to a Collection main item.
type CollectionNode struct {
	Type      CollectionType
	UsagePage uint16
	// Usage is the defining usage attached at collection-open time, the
	// most recently declared local usage. Zero when none was declared.
	Usage    uint32
	Fields   []*ReportField
	Children []*CollectionNode
}

// Walk visits every field declared under this node, depth first. It stops
// early when fn returns false.
func (c *CollectionNode) Walk(fn func(node *CollectionNode, field *ReportField) bool) bool {
	for _, f := range c.Fields {
		if !fn(c, f) {
			return false
		}
	}
	for _, ch := range c.Children {
		if !ch.Walk(fn) {
			return false
		}
	}
	return true
}

// ReportDescriptor is the parse result: the collection tree, an index from
// report ID to the fields carrying it, and the original descriptor bytes.
// It is read-only after Parse and safe to share across goroutines.
type ReportDescriptor struct {
	root       *CollectionNode
	byReportID map[uint8][]*ReportField
	raw        []byte
}

// Root returns the synthetic root of the collection tree.
func (d *ReportDescriptor) Root() *CollectionNode {
	return d.root
}

// FindByReportID returns the fields declared under the given report ID in
// declaration order. ID 0 means no explicit Report ID item was in effect.
// The result is nil for an ID that never appeared.
func (d *ReportDescriptor) FindByReportID(id uint8) []*ReportField {
	return d.byReportID[id]
}

// ReportIDs returns the set of report IDs seen during parsing, unordered.
func (d *ReportDescriptor) ReportIDs() []uint8 {
	ids := make([]uint8, 0, len(d.byReportID))
	for id := range d.byReportID {
		ids = append(ids, id)
	}
	return ids
}

// Bytes returns the raw descriptor this tree was parsed from.
func (d *ReportDescriptor) Bytes() []byte {
	return d.raw
}

// ReportSize returns the byte length of the report with the given ID and
// kind: the sum of each matching field's ByteLength. Each field is rounded
// up to a whole byte before summing, not after, matching the sizing rule of
// the consuming feature-report reader.
func (d *ReportDescriptor) ReportSize(id uint8, kind FieldKind) int {
	size := 0
	for _, f := range d.byReportID[id] {
		if f.Kind == kind {
			size += f.ByteLength()
		}
	}
	return size
}
