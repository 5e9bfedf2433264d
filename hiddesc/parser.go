package hiddesc

// Parse decodes a raw HID report descriptor into a collection tree. It is
// total over arbitrary input: malformed or truncated descriptors yield a
// best-effort tree of whatever items were fully consumed, never an error
// and never a panic. Unbalanced End Collection items are ignored at the
// root, and items cut off by the end of the buffer are truncated.
func Parse(data []byte) *ReportDescriptor {
	d := &ReportDescriptor{
		root:       &CollectionNode{},
		byReportID: make(map[uint8][]*ReportField),
		raw:        data,
	}
	var state itemState
	stack := []*CollectionNode{d.root}
	current := d.root

	for pos := 0; pos < len(data); {
		var it Item
		it, pos = readItem(data, pos)
		switch it.Type {
		case itemTypeMain:
			switch it.Tag {
			case tagCollection:
				node := &CollectionNode{
					Type:      CollectionType(it.Value),
					UsagePage: state.global.usagePage,
				}
				if n := len(state.local.usages); n > 0 {
					node.Usage = state.local.usages[n-1]
				}
				current.Children = append(current.Children, node)
				stack = append(stack, node)
				current = node
			case tagEndCollection:
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
					current = stack[len(stack)-1]
				}
			case tagInput, tagOutput, tagFeature:
				f := newReportField(&state, it)
				current.Fields = append(current.Fields, f)
				d.byReportID[f.ReportID] = append(d.byReportID[f.ReportID], f)
			}
			// local state dies with every main item, consumed or not
			state.clearLocal()
		case itemTypeGlobal:
			state.applyGlobal(it)
		case itemTypeLocal:
			state.applyLocal(it)
		}
	}
	return d
}

func newReportField(state *itemState, it Item) *ReportField {
	kind := FieldInput
	switch it.Tag {
	case tagOutput:
		kind = FieldOutput
	case tagFeature:
		kind = FieldFeature
	}
	return &ReportField{
		Kind:         kind,
		ReportID:     state.global.reportID,
		UsagePage:    state.global.usagePage,
		Usages:       state.resolvedUsages(),
		SizeBits:     state.global.reportSize,
		Count:        state.global.reportCount,
		LogicalMin:   state.global.logicalMin,
		LogicalMax:   state.global.logicalMax,
		PhysicalMin:  state.global.physicalMin,
		PhysicalMax:  state.global.physicalMax,
		Unit:         state.global.unit,
		UnitExponent: state.global.unitExponent,
		Flags:        FieldFlags(it.Value),
	}
}
