package hiddesc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderLines(t *testing.T, data []byte) []string {
	t.Helper()
	out := Parse(data).String()
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 3, "expected items plus trailer")
	return lines
}

func TestRenderBootMouse(t *testing.T) {
	lines := renderLines(t, bootMouse)

	assert.Equal(t, "0x05, 0x01            // Usage Page (Generic Desktop Ctrls)", lines[0])
	assert.Equal(t, "0x09, 0x02            // Usage (Mouse)", lines[1])
	assert.Equal(t, "0xA1, 0x01            // Collection (Application)", lines[2])
	assert.Equal(t, "0x09, 0x01            //   Usage (Pointer)", lines[3])
	assert.Equal(t, "0xA1, 0x00            //   Collection (Physical)", lines[4])
	assert.Equal(t, "0x05, 0x09            //     Usage Page (Button)", lines[5])
	assert.Equal(t, "0x19, 0x01            //     Usage Minimum (0x01)", lines[6])
	assert.Equal(t, "0x15, 0x81            //     Logical Minimum (-127)", lines[20])
	assert.Equal(t, "0x09, 0x30            //     Usage (X)", lines[17])
	assert.Equal(t, "0x81, 0x06            //     Input (Data,Var,Rel,No Wrap,Linear,Preferred State,No Null Position,Bitfield)", lines[24])
	assert.Equal(t, "0xC0                  //   End Collection", lines[25])
	assert.Equal(t, "0xC0                  // End Collection", lines[26])

	// trailer reports total byte count
	assert.Equal(t, "", lines[27])
	assert.Equal(t, "// 52 bytes", lines[28])
}

func TestRenderFlagDecomposition(t *testing.T) {
	type testCase struct {
		kind FieldKind
		raw  uint8
		want string
	}

	testCases := []testCase{
		{
			kind: FieldInput,
			raw:  0x02,
			want: "Data,Var,Abs,No Wrap,Linear,Preferred State,No Null Position,Bitfield",
		},
		{
			kind: FieldInput,
			raw:  0x01,
			want: "Const,Array,Abs,No Wrap,Linear,Preferred State,No Null Position,Bitfield",
		},
		{
			kind: FieldInput,
			raw:  0xFF,
			want: "Const,Var,Rel,Wrap,Non-linear,No Preferred State,Null Position,Buffered Bytes",
		},
		{
			kind: FieldOutput,
			raw:  0x80,
			want: "Data,Array,Abs,No Wrap,Linear,Preferred State,No Null Position,Non-volatile",
		},
		{
			kind: FieldFeature,
			raw:  0x02,
			want: "Data,Var,Abs,No Wrap,Linear,Preferred State,No Null Position,Volatile",
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, flagsText(FieldFlags(tc.raw), tc.kind))
	}
}

func TestRenderNestingDepth(t *testing.T) {
	data := []byte{
		0xA1, 0x01, // Collection (Application)
		0xA1, 0x00, //   Collection (Physical)
		0x81, 0x02, //     Input
		0xC0,
		0xC0,
	}
	lines := renderLines(t, data)
	assert.True(t, strings.HasPrefix(lines[0], "0xA1, 0x01"))
	assert.Contains(t, lines[0], "// Collection (Application)")
	assert.Contains(t, lines[1], "//   Collection (Physical)")
	assert.Contains(t, lines[2], "//     Input (")
	// End Collection lines align with their opening Collection
	assert.Contains(t, lines[3], "//   End Collection")
	assert.Contains(t, lines[4], "// End Collection")
	assert.NotContains(t, lines[4], "//  ")
}

func TestRenderDepthFlooredAtZero(t *testing.T) {
	data := []byte{
		0xC0, // End Collection with nothing open
		0x81, 0x02,
	}
	lines := renderLines(t, data)
	assert.Contains(t, lines[0], "// End Collection")
	assert.Contains(t, lines[1], "// Input (")
	assert.NotContains(t, lines[1], "//  Input")
}

func TestRenderAnnotations(t *testing.T) {
	type testCase struct {
		name string
		data []byte
		want string
	}

	testCases := []testCase{
		{
			name: "vendor usage page",
			data: []byte{0x06, 0x00, 0xFF},
			want: "// Usage Page (Vendor Defined 0xFF00)",
		},
		{
			name: "unknown usage page falls back to hex",
			data: []byte{0x05, 0x42},
			want: "// Usage Page (0x42)",
		},
		{
			name: "unknown usage falls back to hex",
			data: []byte{0x05, 0x01, 0x09, 0x47},
			want: "// Usage (0x47)",
		},
		{
			name: "haptics usage",
			data: []byte{0x05, 0x0E, 0x09, 0x10},
			want: "// Usage (Waveform List)",
		},
		{
			name: "unit",
			data: []byte{0x66, 0x01, 0x10},
			want: "// Unit (System: SI Linear, Time: Seconds)",
		},
		{
			name: "unit exponent",
			data: []byte{0x55, 0x0D},
			want: "// Unit Exponent",
		},
		{
			name: "report id",
			data: []byte{0x85, 0x05},
			want: "// Report ID (5)",
		},
		{
			name: "push renders as raw global tag",
			data: []byte{0xA4},
			want: "// Global (tag=0xA)",
		},
		{
			name: "unknown local tag",
			data: []byte{0x39, 0x01},
			want: "// Local (tag=0x3)",
		},
		{
			name: "long item",
			data: []byte{0xFE, 0x01, 0x7F, 0x00},
			want: "// Reserved",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := Parse(tc.data).String()
			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			// the annotation under test is on the last item line
			assert.Contains(t, lines[len(lines)-3], tc.want)
		})
	}
}

func TestRenderEmptyDescriptor(t *testing.T) {
	assert.Equal(t, "\n// 0 bytes\n", Parse(nil).String())
}

func TestDumpTree(t *testing.T) {
	var buf bytes.Buffer
	Parse(bootMouse).DumpTree(&buf)
	out := buf.String()

	assert.Contains(t, out, "Collection(Application) UsagePage=0x0001 Usage=0x2\n")
	assert.Contains(t, out, "  Collection(Physical) UsagePage=0x0001 Usage=0x1\n")
	assert.Contains(t, out, "    Input(ReportID=0, SizeBits=1, Count=3, Flags=0x02) Usages=[0x1,0x2,0x3]\n")
	assert.Contains(t, out, "    Input(ReportID=0, SizeBits=8, Count=3, Flags=0x06) Usages=[0x30,0x31,0x38]\n")
}
