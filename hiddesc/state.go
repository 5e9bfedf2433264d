package hiddesc

// globalState carries the global item attributes. It is copied by value
// onto the push stack, so a snapshot is immune to later mutation.
type globalState struct {
	usagePage    uint16
	reportID     uint8
	reportSize   uint32
	reportCount  uint32
	logicalMin   int32
	logicalMax   int32
	physicalMin  int32
	physicalMax  int32
	unit         uint32
	unitExponent int8
}

// localState accumulates local item attributes between main items.
type localState struct {
	usages   []uint32
	hasRange bool
	usageMin uint32
	usageMax uint32
}

// itemState is the descriptor-processing context: global attributes with a
// push/pop stack and local attributes cleared after every main item.
type itemState struct {
	global globalState
	local  localState
	stack  []globalState
}

func (s *itemState) applyGlobal(it Item) {
	switch it.Tag {
	case tagUsagePage:
		s.global.usagePage = uint16(it.Value)
	case tagLogicalMinimum:
		s.global.logicalMin = signExtend(it.Value, it.Size)
	case tagLogicalMaximum:
		s.global.logicalMax = signExtend(it.Value, it.Size)
	case tagPhysicalMinimum:
		s.global.physicalMin = signExtend(it.Value, it.Size)
	case tagPhysicalMaximum:
		s.global.physicalMax = signExtend(it.Value, it.Size)
	case tagUnitExponent:
		s.global.unitExponent = int8(signExtend(it.Value, it.Size))
	case tagUnit:
		s.global.unit = it.Value
	case tagReportSize:
		s.global.reportSize = it.Value
	case tagReportID:
		s.global.reportID = uint8(it.Value)
	case tagReportCount:
		s.global.reportCount = it.Value
	case tagPush:
		s.stack = append(s.stack, s.global)
	case tagPop:
		// ignored when the stack is empty
		if n := len(s.stack); n > 0 {
			s.global = s.stack[n-1]
			s.stack = s.stack[:n-1]
		}
	}
}

func (s *itemState) applyLocal(it Item) {
	switch it.Tag {
	case tagUsage:
		s.local.usages = append(s.local.usages, it.Value)
	case tagUsageMinimum:
		s.local.hasRange = true
		s.local.usageMin = it.Value
	case tagUsageMaximum:
		s.local.hasRange = true
		s.local.usageMax = it.Value
	}
}

func (s *itemState) clearLocal() {
	s.local = localState{}
}

// resolvedUsages materializes the usage sequence for a field: a declared
// usage range expands inclusively and takes precedence over the explicit
// usage list.
func (s *itemState) resolvedUsages() []uint32 {
	if s.local.hasRange {
		if s.local.usageMax < s.local.usageMin {
			return nil
		}
		usages := make([]uint32, 0, s.local.usageMax-s.local.usageMin+1)
		for u := s.local.usageMin; ; u++ {
			usages = append(usages, u)
			if u == s.local.usageMax {
				break
			}
		}
		return usages
	}
	if len(s.local.usages) == 0 {
		return nil
	}
	usages := make([]uint32, len(s.local.usages))
	copy(usages, s.local.usages)
	return usages
}
