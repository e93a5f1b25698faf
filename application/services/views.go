package services

// ItemView is the read model of an item and its subtree. When passed back
// into a destructive operation it doubles as the caller's expected version
// vector: one version per node the caller last observed.
type ItemView struct {
	ID          string     `json:"id"`
	Value       string     `json:"value"`
	Description string     `json:"description,omitempty"`
	Version     int        `json:"version"`
	Deleted     bool       `json:"deleted"`
	Children    []ItemView `json:"children"`
}

// BookView is the read model of a whole reference book
type BookView struct {
	OwnerID     string     `json:"owner_id"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Version     int        `json:"version"`
	Deleted     bool       `json:"deleted"`
	Children    []ItemView `json:"children"`
}

// Root converts the book view into the item view of its root node
func (b BookView) Root() ItemView {
	return ItemView{
		ID:          b.ID,
		Value:       b.Name,
		Description: b.Description,
		Version:     b.Version,
		Deleted:     b.Deleted,
		Children:    b.Children,
	}
}

// PathNode is one step of a root-to-item breadcrumb chain
type PathNode struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}
