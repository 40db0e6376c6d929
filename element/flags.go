package element

import "strings"

// Flag is a bit in an element's flag word
type Flag uint32

// Constant flags, fixed at construction
const (
	FlagRuntime Flag = 1 << iota
	FlagPort
	FlagEdgeAggregator
	FlagInterface
	FlagNetworkElement
	FlagGloballyUniqueLink
	FlagAlternativeLinkRoot
	FlagAutoRename
	FlagSensorData
	FlagControllerData
	FlagShared

	// Port flags
	FlagEmitsData
	FlagAcceptsData
	FlagOutputPort
	FlagVolatile
	FlagToolPort
	FlagPushStrategy
	FlagMultiTypeBuffer
)

// Status flags, changed under the structure lock after construction
const (
	FlagReady Flag = 1 << (24 + iota)
	FlagPublished
	FlagDeleted
	FlagFinstructed
)

const (
	// ConstantFlags masks all flags that may be passed at construction
	ConstantFlags Flag = 1<<24 - 1
	// StatusFlags masks the lifecycle flags
	StatusFlags = FlagReady | FlagPublished | FlagDeleted | FlagFinstructed
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagRuntime, "RUNTIME"},
	{FlagPort, "PORT"},
	{FlagEdgeAggregator, "EDGE_AGGREGATOR"},
	{FlagInterface, "INTERFACE"},
	{FlagNetworkElement, "NETWORK_ELEMENT"},
	{FlagGloballyUniqueLink, "GLOBALLY_UNIQUE_LINK"},
	{FlagAlternativeLinkRoot, "ALTERNATIVE_LINK_ROOT"},
	{FlagAutoRename, "AUTO_RENAME"},
	{FlagSensorData, "SENSOR_DATA"},
	{FlagControllerData, "CONTROLLER_DATA"},
	{FlagShared, "SHARED"},
	{FlagEmitsData, "EMITS_DATA"},
	{FlagAcceptsData, "ACCEPTS_DATA"},
	{FlagOutputPort, "OUTPUT_PORT"},
	{FlagVolatile, "VOLATILE"},
	{FlagToolPort, "TOOL_PORT"},
	{FlagPushStrategy, "PUSH_STRATEGY"},
	{FlagMultiTypeBuffer, "MULTI_TYPE_BUFFER"},
	{FlagReady, "READY"},
	{FlagPublished, "PUBLISHED"},
	{FlagDeleted, "DELETED"},
	{FlagFinstructed, "FINSTRUCTED"},
}

// Has reports whether all bits of other are set
func (f Flag) Has(other Flag) bool {
	return f&other == other
}

// Any reports whether at least one bit of other is set
func (f Flag) Any(other Flag) bool {
	return f&other != 0
}

func (f Flag) String() string {
	if f == 0 {
		return "0"
	}
	var names []string
	for _, n := range flagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}
