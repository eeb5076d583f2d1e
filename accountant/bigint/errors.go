package bigint

import "fmt"

// TableUpdateError wraps a SQL failure encountered while adding or
// subtracting a big-integer balance, identifying the table, the requested
// change, the key, and the engine's own message (spec.md section 4.2 step
// 3, section 7).
type TableUpdateError struct {
	Table      string
	KeyColumn  string
	KeyValue   interface{}
	WeiChange  string
	EngineMsg  string
}

func (e *TableUpdateError) Error() string {
	return fmt.Sprintf(
		"bigint: updating table %q (%s=%v) by %s wei: %s",
		e.Table, e.KeyColumn, e.KeyValue, e.WeiChange, e.EngineMsg,
	)
}

// SignConversionError describes a wei amount read back from storage or
// about to be deconstructed that cannot be represented in the expected
// sign (e.g. a PayableAccount balance that came back negative). No
// function in this module returns it.
type SignConversionError struct {
	Value string
}

func (e *SignConversionError) Error() string {
	return fmt.Sprintf("bigint: sign conversion failed for value %s", e.Value)
}
