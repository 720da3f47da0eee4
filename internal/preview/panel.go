package preview

// ViewColumn is where a panel is placed relative to the editor.
type ViewColumn string

// ColumnBeside places the panel next to the current editor group.
const ColumnBeside ViewColumn = "beside"

// ViewType identifies preview panels.
const ViewType = "sitedogPreview"

// PanelOptions describe a panel to create.
type PanelOptions struct {
	ViewType                string
	Title                   string
	Column                  ViewColumn
	EnableScripts           bool
	RetainContextWhenHidden bool
}

// UpdateMessage asks an open panel to re-render with new configuration
// text without replacing its document.
type UpdateMessage struct {
	Command string `json:"command"`
	YAML    string `json:"yaml"`
}

// Panel is a live browser surface showing one HTML document at a time.
type Panel interface {
	// ID identifies this panel instance.
	ID() string
	// SetHTML replaces the whole document.
	SetHTML(html string)
	// Reveal brings the panel to front in column.
	Reveal(column ViewColumn)
	// PostMessage delivers msg to the document's message listener.
	PostMessage(msg UpdateMessage) error
	// OnDidDispose registers fn to run once the panel is disposed.
	OnDidDispose(fn func())
	// Dispose closes the panel.
	Dispose()
}

// PanelFactory creates panels.
type PanelFactory interface {
	CreatePanel(opts PanelOptions) (Panel, error)
}
