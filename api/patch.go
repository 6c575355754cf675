package api

// PatchActionType represents the type of a patch action.
type PatchActionType string

const (
	// PatchActionDeleteKeyword deletes every entry of a folder whose name contains a keyword.
	PatchActionDeleteKeyword PatchActionType = "delete_keyword"

	// PatchActionDelete deletes a single path.
	PatchActionDelete PatchActionType = "delete"

	// PatchActionCopyFolder merges a folder from the archive into the game root.
	PatchActionCopyFolder PatchActionType = "copy_folder"
)

// PatchActionTypes is a map of the supported patch action types.
var PatchActionTypes = map[PatchActionType]struct{}{
	PatchActionDeleteKeyword: {},
	PatchActionDelete:        {},
	PatchActionCopyFolder:    {},
}

func (t *PatchActionType) String() string {
	return string(*t)
}

// PatchManifest represents the manifest.json file at the root of a patch archive.
type PatchManifest struct {
	Actions       []PatchAction  `json:"actions"        yaml:"actions"`
	ExternalFiles []ExternalFile `json:"external_files" yaml:"external_files"`
}

// PatchAction represents a single filesystem mutation.
//
// Folder and Keyword are used by delete_keyword, Path by delete and Src/Dest by copy_folder.
type PatchAction struct {
	Type PatchActionType `json:"type" yaml:"type"`

	Folder  string `json:"folder,omitempty"  yaml:"folder,omitempty"`
	Keyword string `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	Path    string `json:"path,omitempty"    yaml:"path,omitempty"`
	Src     string `json:"src,omitempty"     yaml:"src,omitempty"`
	Dest    string `json:"dest,omitempty"    yaml:"dest,omitempty"`
}

// ExternalFile represents a file fetched individually rather than shipped in the archive.
type ExternalFile struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	URL  string `json:"url"  yaml:"url"`
	Size int64  `json:"size" yaml:"size"`
}

// Empty returns true if the manifest holds no operation.
func (m *PatchManifest) Empty() bool {
	return len(m.Actions) == 0 && len(m.ExternalFiles) == 0
}
