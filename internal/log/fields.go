package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"

	// Event fields
	FieldEventKind   = "event_kind"
	FieldWorkspaceID = "workspace_id"
	FieldBlockID     = "block_id"
	FieldGroupID     = "group_id"

	// Coordinator fields
	FieldDiagnostic = "diagnostic"
	FieldRequested  = "requested_group"
	FieldDepth      = "depth"
	FieldPending    = "pending"

	// History fields
	FieldOp        = "op"
	FieldGroupSize = "group_size"
	FieldUndoCount = "undo_count"
	FieldRedoCount = "redo_count"

	FieldPath = "path"
)
