package api

// EditDocumentRequest is the request body for a live edit.
type EditDocumentRequest struct {
	Text string `json:"text" example:"title: My site\n"`
}

// CommandRequest targets a command at a document. An empty path means the
// active document.
type CommandRequest struct {
	Path string `json:"path,omitempty" example:"sitedog.yml"`
}

// ConvertRequest is the request body for the convert command.
type ConvertRequest struct {
	Path    string `json:"path,omitempty" example:"sitedog.yml"`
	Confirm bool   `json:"confirm" example:"true"`
	Save    bool   `json:"save" example:"false"`
}

// ClosePanelRequest names the panel to close.
type ClosePanelRequest struct {
	ID string `json:"id,omitempty"`
}

// PanelMessageRequest carries YAML for the panel's update message.
type PanelMessageRequest struct {
	YAML string `json:"yaml" validate:"required"`
}

// DocumentListResponse lists open documents.
type DocumentListResponse struct {
	Documents []string `json:"documents" validate:"required"`
	Active    string   `json:"active,omitempty" example:"sitedog.yml"`
}

// FileListResponse lists configuration files in the workspace.
type FileListResponse struct {
	Files []string `json:"files" validate:"required"`
}
