package port

import (
	"fmt"
	"strings"

	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/errors"
)

// ConnectFlag is a bit of a connector's flag word
type ConnectFlag uint32

const (
	// ConnectDirectionToDestination makes the calling port the source
	ConnectDirectionToDestination ConnectFlag = 1 << iota
	// ConnectDirectionToSource makes the calling port the destination
	ConnectDirectionToSource
	ConnectFinstructed
	ConnectReconnect
	ConnectOptional
	ConnectSchedulingNeutral
	ConnectNonPrimary
	ConnectConversion
	ConnectPublished
	ConnectDisconnected
)

const (
	directionFlags = ConnectDirectionToDestination | ConnectDirectionToSource
	// internalFlags are managed by the connection protocol
	internalFlags = ConnectNonPrimary | ConnectConversion | ConnectPublished | ConnectDisconnected
)

var connectFlagNames = []struct {
	flag ConnectFlag
	name string
}{
	{ConnectDirectionToDestination, "TO_DESTINATION"},
	{ConnectDirectionToSource, "TO_SOURCE"},
	{ConnectFinstructed, "FINSTRUCTED"},
	{ConnectReconnect, "RECONNECT"},
	{ConnectOptional, "OPTIONAL"},
	{ConnectSchedulingNeutral, "SCHEDULING_NEUTRAL"},
	{ConnectNonPrimary, "NON_PRIMARY_CONNECTOR"},
	{ConnectConversion, "CONVERSION"},
	{ConnectPublished, "PUBLISHED"},
	{ConnectDisconnected, "DISCONNECTED"},
}

// Has reports whether all bits of other are set
func (f ConnectFlag) Has(other ConnectFlag) bool {
	return f&other == other
}

func (f ConnectFlag) String() string {
	if f == 0 {
		return "0"
	}
	var names []string
	for _, n := range connectFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ConnectOptions configure a new connector
type ConnectOptions struct {
	Flags      ConnectFlag
	Conversion dtype.ConversionSequence
}

// Validate rejects option combinations that are programming errors
func (o ConnectOptions) Validate() error {
	if o.Flags.Has(directionFlags) {
		return errors.WrapInvalid(errors.ErrInvalidConnectOptions, "Port", "ConnectTo", "direction flag validation")
	}
	if o.Flags&(ConnectPublished|ConnectDisconnected) != 0 {
		return errors.WrapInvalid(errors.ErrInvalidConnectOptions, "Port", "ConnectTo", "status flag validation")
	}
	if err := o.Conversion.Validate(); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConnectOptions, err), "Port", "ConnectTo", "conversion validation")
	}
	return nil
}

// Equal compares options ignoring flags managed by the protocol
func (o ConnectOptions) Equal(other ConnectOptions) bool {
	if o.Flags&^internalFlags != other.Flags&^internalFlags || len(o.Conversion) != len(other.Conversion) {
		return false
	}
	for i := range o.Conversion {
		if o.Conversion[i] != other.Conversion[i] {
			return false
		}
	}
	return true
}

// ConnectError reports a connection attempt that was refused. It is a soft
// failure: both ports are left untouched.
type ConnectError struct {
	Source      string
	Destination string
	Reason      string
	Err         error
}

func (e *ConnectError) Error() string {
	return "connection " + e.Source + " -> " + e.Destination + " rejected: " + e.Reason
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
