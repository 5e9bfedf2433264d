package hiddesc

import (
	"fmt"
	"io"
	"strings"

	"github.com/hidtoolkit/hidprobe/hidusage"
)

// bytesColumn is the minimum width of the hex byte column, six characters
// per rendered byte.
const bytesColumn = 24

// String renders the annotated disassembly: one line per item in encounter
// order, raw bytes in hex followed by a comment indented by collection
// nesting depth. It re-tokenizes the retained descriptor bytes rather than
// walking the tree, so items the tree discards (Usage Page, Report Size,
// ...) still show up, at their exact byte offsets.
func (d *ReportDescriptor) String() string {
	var sb strings.Builder
	var usagePage uint16
	depth := 0
	data := d.raw
	for pos := 0; pos < len(data); {
		start := pos
		var it Item
		it, pos = readItem(data, pos)
		if it.Type == itemTypeMain && it.Tag == tagEndCollection && depth > 0 {
			depth--
		}
		writeItemBytes(&sb, data[start:pos])
		sb.WriteString("// ")
		sb.WriteString(strings.Repeat("  ", depth))
		switch it.Type {
		case itemTypeMain:
			switch it.Tag {
			case tagCollection:
				fmt.Fprintf(&sb, "Collection (%s)", CollectionType(it.Value))
				depth++
			case tagEndCollection:
				sb.WriteString("End Collection")
			case tagInput:
				fmt.Fprintf(&sb, "Input (%s)", flagsText(FieldFlags(it.Value), FieldInput))
			case tagOutput:
				fmt.Fprintf(&sb, "Output (%s)", flagsText(FieldFlags(it.Value), FieldOutput))
			case tagFeature:
				fmt.Fprintf(&sb, "Feature (%s)", flagsText(FieldFlags(it.Value), FieldFeature))
			default:
				fmt.Fprintf(&sb, "Main (tag=0x%X)", it.Tag)
			}
		case itemTypeGlobal:
			switch it.Tag {
			case tagUsagePage:
				usagePage = uint16(it.Value)
				fmt.Fprintf(&sb, "Usage Page (%s)", hidusage.PageName(usagePage))
			case tagLogicalMinimum:
				fmt.Fprintf(&sb, "Logical Minimum (%d)", signExtend(it.Value, it.Size))
			case tagLogicalMaximum:
				fmt.Fprintf(&sb, "Logical Maximum (%d)", signExtend(it.Value, it.Size))
			case tagPhysicalMinimum:
				fmt.Fprintf(&sb, "Physical Minimum (%d)", signExtend(it.Value, it.Size))
			case tagPhysicalMaximum:
				fmt.Fprintf(&sb, "Physical Maximum (%d)", signExtend(it.Value, it.Size))
			case tagUnitExponent:
				sb.WriteString("Unit Exponent")
			case tagUnit:
				sb.WriteString("Unit (System: SI Linear, Time: Seconds)")
			case tagReportSize:
				fmt.Fprintf(&sb, "Report Size (%d)", it.Value)
			case tagReportID:
				fmt.Fprintf(&sb, "Report ID (%d)", uint8(it.Value))
			case tagReportCount:
				fmt.Fprintf(&sb, "Report Count (%d)", it.Value)
			default:
				fmt.Fprintf(&sb, "Global (tag=0x%X)", it.Tag)
			}
		case itemTypeLocal:
			switch it.Tag {
			case tagUsage:
				fmt.Fprintf(&sb, "Usage (%s)", hidusage.Name(usagePage, it.Value))
			case tagUsageMinimum:
				fmt.Fprintf(&sb, "Usage Minimum (0x%02X)", it.Value)
			case tagUsageMaximum:
				fmt.Fprintf(&sb, "Usage Maximum (0x%02X)", it.Value)
			default:
				fmt.Fprintf(&sb, "Local (tag=0x%X)", it.Tag)
			}
		default:
			sb.WriteString("Reserved")
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "\n// %d bytes\n", len(data))
	return sb.String()
}

func writeItemBytes(sb *strings.Builder, raw []byte) {
	for i, b := range raw {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "0x%02X", b)
	}
	pads := 1
	if w := len(raw) * 6; w < bytesColumn {
		pads = bytesColumn - w
	}
	sb.WriteString(strings.Repeat(" ", pads))
}

func flagsText(f FieldFlags, kind FieldKind) string {
	pick := func(set bool, on, off string) string {
		if set {
			return on
		}
		return off
	}
	parts := []string{
		pick(f.IsConstant(), "Const", "Data"),
		pick(f.IsVariable(), "Var", "Array"),
		pick(f.IsRelative(), "Rel", "Abs"),
		pick(f.IsWrap(), "Wrap", "No Wrap"),
		pick(f.IsNonLinear(), "Non-linear", "Linear"),
		pick(f.IsNoPreferred(), "No Preferred State", "Preferred State"),
		pick(f.IsNullState(), "Null Position", "No Null Position"),
	}
	if kind == FieldInput {
		parts = append(parts, pick(f.IsBufferedBytes(), "Buffered Bytes", "Bitfield"))
	} else {
		parts = append(parts, pick(f.IsBufferedBytes(), "Non-volatile", "Volatile"))
	}
	return strings.Join(parts, ",")
}

// DumpTree writes a structural dump of the collection tree: one line per
// collection and per field, indented by depth. Unlike String, this walks
// the parsed tree and shows only items that produced tree nodes.
func (d *ReportDescriptor) DumpTree(w io.Writer) {
	for _, f := range d.root.Fields {
		dumpField(w, f, 0)
	}
	for _, ch := range d.root.Children {
		dumpCollection(w, ch, 0)
	}
}

func dumpCollection(w io.Writer, node *CollectionNode, indent int) {
	ind := strings.Repeat("  ", indent)
	fmt.Fprintf(w, "%sCollection(%s)", ind, node.Type)
	if node.UsagePage != 0 || node.Usage != 0 {
		fmt.Fprintf(w, " UsagePage=0x%04X", node.UsagePage)
		if node.Usage != 0 {
			fmt.Fprintf(w, " Usage=0x%X", node.Usage)
		}
	}
	fmt.Fprintln(w)
	for _, f := range node.Fields {
		dumpField(w, f, indent+1)
	}
	for _, ch := range node.Children {
		dumpCollection(w, ch, indent+1)
	}
}

func dumpField(w io.Writer, f *ReportField, indent int) {
	ind := strings.Repeat("  ", indent)
	fmt.Fprintf(w, "%s%s(ReportID=%d, SizeBits=%d, Count=%d, Flags=0x%02X)",
		ind, f.Kind, f.ReportID, f.SizeBits, f.Count, uint8(f.Flags))
	if len(f.Usages) > 0 {
		parts := make([]string, len(f.Usages))
		for i, u := range f.Usages {
			parts[i] = fmt.Sprintf("0x%X", u)
		}
		fmt.Fprintf(w, " Usages=[%s]", strings.Join(parts, ","))
	}
	fmt.Fprintln(w)
}
