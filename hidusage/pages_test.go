package hidusage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageName(t *testing.T) {
	type testCase struct {
		page uint16
		want string
	}

	testCases := []testCase{
		{page: 0x01, want: "Generic Desktop Ctrls"},
		{page: 0x07, want: "Kbrd/Keypad"},
		{page: 0x08, want: "LEDs"},
		{page: 0x09, want: "Button"},
		{page: 0x0A, want: "Ordinal"},
		{page: 0x0C, want: "Consumer"},
		{page: 0x0D, want: "Digitizer"},
		{page: 0x0E, want: "Reserved 0x0E"},
		{page: 0xFF00, want: "Vendor Defined 0xFF00"},
		{page: 0xFFAB, want: "Vendor Defined 0xFFAB"},
		{page: 0x42, want: "0x42"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, PageName(tc.page))
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "Mouse", Name(0x01, 0x02))
	assert.Equal(t, "Wheel", Name(0x01, 0x38))
	assert.Equal(t, "Stylus", Name(0x0D, 0x20))
	assert.Equal(t, "Volume", Name(0x0C, 0xE0))
	assert.Equal(t, "Simple Haptic Controller", Name(0x0E, 0x01))
	assert.Equal(t, "0x47", Name(0x01, 0x47))
	assert.Equal(t, "0x1", Name(0x99, 0x01))
	assert.Equal(t, "0x10000", Name(0x01, 0x10000), "usages above 16 bits always fall back to hex")
}

func TestGetPageInfoByAlias(t *testing.T) {
	page, ok := GetPageInfoByAlias("GenericDesktop")
	require.True(t, ok)
	assert.Equal(t, uint16(0x01), page.Code)

	_, ok = GetPageInfoByAlias("NoSuchPage")
	assert.False(t, ok)
}

func TestRegisterDerivesAliases(t *testing.T) {
	Register(PageInfo{
		Code: 0xFF01,
		Name: "Test Vendor Page",
		Usages: map[uint16]UsageInfo{
			0x01: {ID: 0x01, Name: "first control"},
		},
	})
	page, ok := GetPageInfo(0xFF01)
	require.True(t, ok)
	assert.Equal(t, "TestVendorPage", page.Alias)
	assert.Equal(t, "FirstControl", page.Usages[0x01].Alias)
	assert.Equal(t, "first control", Name(0xFF01, 0x01))
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.yml")
	content := `
pages:
  - code: 0xFF60
    name: Vendor Macropad
    usages:
      - id: 0x61
        name: Macro Slot
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, LoadOverrides(path))

	assert.Equal(t, "Vendor Macropad", PageName(0xFF60))
	assert.Equal(t, "Macro Slot", Name(0xFF60, 0x61))

	assert.Error(t, LoadOverrides(filepath.Join(dir, "missing.yml")))

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("pages: {not: a list}"), 0o644))
	assert.Error(t, LoadOverrides(bad))
}
