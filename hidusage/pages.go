// Package hidusage maps HID usage pages and usage IDs to human-readable
// names. It ships a small built-in table covering the pages the annotated
// renderer knows about; vendor tables can be added with Register or loaded
// from a YAML file with LoadOverrides.
package hidusage

import (
	"fmt"
	"sync"

	"github.com/iancoleman/strcase"
)

// UsageInfo describes a single usage ID within a page.
type UsageInfo struct {
	ID    uint16
	Name  string
	Alias string
}

// PageInfo describes a usage page and its known usages.
type PageInfo struct {
	Code   uint16
	Name   string
	Alias  string
	Usages map[uint16]UsageInfo
}

var (
	mu           sync.RWMutex
	pages        = map[uint16]PageInfo{}
	pageAliasMap = map[string]uint16{}
)

// Register installs or replaces a page table. Aliases are derived from the
// names when absent.
func Register(page PageInfo) {
	if page.Alias == "" {
		page.Alias = strcase.ToCamel(page.Name)
	}
	for id, usage := range page.Usages {
		if usage.Alias == "" {
			usage.Alias = strcase.ToCamel(usage.Name)
			page.Usages[id] = usage
		}
	}
	mu.Lock()
	pages[page.Code] = page
	pageAliasMap[page.Alias] = page.Code
	mu.Unlock()
}

// GetPageInfo returns the table for a page code.
func GetPageInfo(code uint16) (PageInfo, bool) {
	mu.RLock()
	defer mu.RUnlock()
	page, ok := pages[code]
	return page, ok
}

// GetPageInfoByAlias returns the table registered under a camel-case alias.
func GetPageInfoByAlias(alias string) (PageInfo, bool) {
	mu.RLock()
	defer mu.RUnlock()
	code, ok := pageAliasMap[alias]
	if !ok {
		return PageInfo{}, false
	}
	return pages[code], true
}

// PageName returns the display name of a usage page. Vendor-defined pages
// render as "Vendor Defined 0xXXXX"; unknown pages fall back to hex.
func PageName(page uint16) string {
	if info, ok := GetPageInfo(page); ok {
		return info.Name
	}
	if page >= 0xFF00 {
		return fmt.Sprintf("Vendor Defined 0x%04X", page)
	}
	return fmt.Sprintf("0x%02X", page)
}

// Name returns the display name of a usage within a page, falling back to
// a hex literal when the usage (or the whole page) is unknown.
func Name(page uint16, usage uint32) string {
	if info, ok := GetPageInfo(page); ok && usage <= 0xFFFF {
		if u, ok := info.Usages[uint16(usage)]; ok {
			return u.Name
		}
	}
	return fmt.Sprintf("0x%X", usage)
}

func usageTable(usages ...UsageInfo) map[uint16]UsageInfo {
	table := make(map[uint16]UsageInfo, len(usages))
	for _, u := range usages {
		table[u.ID] = u
	}
	return table
}

func init() {
	Register(PageInfo{
		Code:  0x01,
		Name:  "Generic Desktop Ctrls",
		Alias: "GenericDesktop",
		Usages: usageTable(
			UsageInfo{ID: 0x01, Name: "Pointer"},
			UsageInfo{ID: 0x02, Name: "Mouse"},
			UsageInfo{ID: 0x30, Name: "X"},
			UsageInfo{ID: 0x31, Name: "Y"},
			UsageInfo{ID: 0x38, Name: "Wheel"},
		),
	})
	Register(PageInfo{Code: 0x07, Name: "Kbrd/Keypad", Alias: "Keyboard"})
	Register(PageInfo{Code: 0x08, Name: "LEDs"})
	Register(PageInfo{Code: 0x09, Name: "Button"})
	Register(PageInfo{Code: 0x0A, Name: "Ordinal"})
	Register(PageInfo{
		Code: 0x0C,
		Name: "Consumer",
		Usages: usageTable(
			UsageInfo{ID: 0xE0, Name: "Volume"},
		),
	})
	Register(PageInfo{
		Code: 0x0D,
		Name: "Digitizer",
		Usages: usageTable(
			UsageInfo{ID: 0x20, Name: "Stylus"},
		),
	})
	// Page 0x0E is reserved in older revisions of the usage tables; the
	// haptics usages live there in practice.
	Register(PageInfo{
		Code:  0x0E,
		Name:  "Reserved 0x0E",
		Alias: "Haptics",
		Usages: usageTable(
			UsageInfo{ID: 0x01, Name: "Simple Haptic Controller"},
			UsageInfo{ID: 0x10, Name: "Waveform List"},
			UsageInfo{ID: 0x11, Name: "Duration List"},
			UsageInfo{ID: 0x20, Name: "Auto Trigger"},
			UsageInfo{ID: 0x21, Name: "Manual Trigger"},
			UsageInfo{ID: 0x22, Name: "Auto Trigger Associated Control"},
			UsageInfo{ID: 0x23, Name: "Intensity"},
			UsageInfo{ID: 0x24, Name: "Repeat Count"},
			UsageInfo{ID: 0x25, Name: "Retrigger Period"},
			UsageInfo{ID: 0x28, Name: "Waveform Cutoff Time"},
		),
	})
}
